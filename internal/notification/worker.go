package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"refeitorio-client/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// PushMessage is the JSON payload delivered to the service worker.
type PushMessage struct {
	Title   string            `json:"titulo"`
	Body    string            `json:"mensagem"`
	SlotID  int64             `json:"refeicao_id"`
	Status  model.QueueStatus `json:"status"`
	Ranking string            `json:"posicao,omitempty"`
}

// WorkerPool fans position events out to the stored push subscriptions.
type WorkerPool struct {
	size    int
	jobs    chan model.PositionEvent
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.PositionEvent, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("push worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.logger.Debug("push worker processing event",
				zap.Int("worker", id), zap.Int64("refeicao_id", ev.SlotID), zap.String("status", string(ev.Status)))
			wp.sendNotificationsForEvent(ctx, ev)
		case <-ctx.Done():
			wp.logger.Debug("push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an event, blocking while the queue is full.
func (wp *WorkerPool) Dispatch(ev model.PositionEvent) {
	wp.jobs <- ev
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.PositionEvent {
	return wp.jobs
}

// subscriptionsFor returns the subscriptions following the slot, plus those
// with no slot mapping at all, which follow every slot.
func (wp *WorkerPool) subscriptionsFor(ctx context.Context, slotID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	following := wp.db.Table("subscription_slot_mapping").Select("push_subscription_endpoint").Where("slot_id = ?", slotID)
	mapped := wp.db.Table("subscription_slot_mapping").Select("push_subscription_endpoint")
	err := wp.db.WithContext(ctx).
		Where("endpoint IN (?) OR endpoint NOT IN (?)", following, mapped).
		Find(&subscriptions).Error
	return subscriptions, err
}

func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, ev model.PositionEvent) {
	found, err := wp.subscriptionsFor(ctx, ev.SlotID)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.Int64("refeicao_id", ev.SlotID), zap.Error(err))
		return
	}
	subscriptions := found[:0]
	for _, sub := range found {
		if sub.Wants(ev.Status) {
			subscriptions = append(subscriptions, sub)
		}
	}
	if len(subscriptions) == 0 {
		return
	}

	if ev.Date == "" || ev.Shift == "" {
		var slot model.Slot
		if err := wp.db.WithContext(ctx).Select("date", "shift").First(&slot, ev.SlotID).Error; err != nil {
			wp.logger.Warn("failed to look up slot for notification", zap.Int64("refeicao_id", ev.SlotID), zap.Error(err))
		} else {
			ev.Date, ev.Shift = slot.Date, slot.Shift
		}
	}

	payload, err := json.Marshal(buildMessage(ev))
	if err != nil {
		wp.logger.Error("failed to encode push message", zap.Error(err))
		return
	}

	wp.logger.Info("sending push notifications",
		zap.Int("count", len(subscriptions)), zap.Int64("refeicao_id", ev.SlotID), zap.String("status", string(ev.Status)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func slotLabel(ev model.PositionEvent) string {
	if ev.Date == "" {
		return fmt.Sprintf("refeição %d", ev.SlotID)
	}
	shift := "almoço"
	if ev.Shift == model.ShiftDinner {
		shift = "jantar"
	}
	return fmt.Sprintf("%s de %s", shift, ev.Date)
}

func buildMessage(ev model.PositionEvent) PushMessage {
	msg := PushMessage{SlotID: ev.SlotID, Status: ev.Status}
	if ev.Total > 0 {
		msg.Ranking = fmt.Sprintf("%d/%d", ev.Position, ev.Total)
	}
	label := slotLabel(ev)
	switch ev.Status {
	case model.QueueConfirmed:
		msg.Title = "Refeição extra confirmada"
		msg.Body = fmt.Sprintf("Sua vaga extra foi confirmada: %s.", label)
	case model.QueueNext:
		msg.Title = "Você é o próximo da fila"
		msg.Body = fmt.Sprintf("Você é o próximo da fila de extras: %s.", label)
	default:
		msg.Title = "Fila de extras atualizada"
		msg.Body = fmt.Sprintf("Nova posição na fila de extras (%s): %d de %d.", label, ev.Position, ev.Total)
	}
	return msg
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send push notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("push subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
