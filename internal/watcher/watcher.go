// Package watcher keeps a local mirror of the waitlist in sync with the
// backend and turns position changes into notifications.
package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"refeitorio-client/config"
	"refeitorio-client/internal/events"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/parse"
	"refeitorio-client/internal/store"
	"refeitorio-client/internal/waitlist"
)

// Dispatcher queues a position event for delivery.
type Dispatcher interface {
	Dispatch(ev model.PositionEvent)
}

// Service orchestrates the sync cycle. It uses a Store for persistence.
type Service struct {
	cfg        *config.Config
	coord      *waitlist.Coordinator
	store      store.Store
	dispatcher Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
	loc        *time.Location
	notify     map[model.QueueStatus]bool
	now        func() time.Time
}

// NewService creates and initializes a new watcher service.
func NewService(cfg *config.Config, coord *waitlist.Coordinator, s store.Store, dispatcher Dispatcher, publisher events.Publisher, logger *zap.Logger) (*Service, error) {
	loc, err := time.LoadLocation(cfg.Watcher.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Watcher.Timezone, err)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notify := make(map[model.QueueStatus]bool, len(cfg.Watcher.NotifyStatuses))
	for _, st := range cfg.Watcher.NotifyStatuses {
		notify[model.QueueStatus(st)] = true
	}
	return &Service{
		cfg:        cfg,
		coord:      coord,
		store:      s,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		loc:        loc,
		notify:     notify,
		now:        time.Now,
	}, nil
}

// Run syncs once and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Watcher.Enabled {
		s.logger.Info("watcher is disabled, not starting")
		return
	}
	s.logger.Info("starting watcher service", zap.Duration("interval", s.cfg.Watcher.Interval))

	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Warn("sync cycle failed", zap.Error(err))
	}

	timer := time.NewTimer(s.cfg.Watcher.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher service shutting down")
			return
		case <-timer.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Warn("sync cycle failed", zap.Error(err))
			}
			timer.Reset(s.cfg.Watcher.Interval)
		}
	}
}

// SyncOnce refreshes the coordinator and mirrors the result into the store.
func (s *Service) SyncOnce(ctx context.Context) error {
	s.logger.Debug("executing sync cycle")
	now := s.now().UTC()

	s.coord.LoadMine(ctx)
	if err := s.coord.LoadAvailable(ctx, false); err != nil {
		// The positions can still be mirrored without the slot list.
		s.logger.Warn("available slots not refreshed", zap.Error(err))
	}
	if err := s.coord.LoadPositions(ctx); err != nil {
		return fmt.Errorf("queue positions not refreshed, mirror left untouched: %w", err)
	}
	if s.coord.State(waitlist.ResourcePositions) != waitlist.Loaded {
		s.logger.Debug("queue positions not loaded yet, mirror left untouched")
		return nil
	}

	available := s.coord.Available()
	if err := s.store.UpsertSlots(ctx, s.toSlots(available)); err != nil {
		return fmt.Errorf("failed to mirror slots: %w", err)
	}

	evs, err := s.store.UpdatePositions(ctx, now, s.coord.Positions(), s.shouldNotify)
	if err != nil {
		return fmt.Errorf("failed to mirror positions: %w", err)
	}

	if len(evs) > 0 {
		refs := slotRefs(s.coord.Mine(), available)
		s.logger.Info("dispatching position events", zap.Int("count", len(evs)))
		for _, ev := range evs {
			if ref, ok := refs[ev.SlotID]; ok {
				ev.Date, ev.Shift = ref.Date, ref.Shift
			}
			s.dispatcher.Dispatch(ev)
			if err := s.publisher.Publish(ctx, ev); err != nil {
				s.logger.Warn("failed to publish position event", zap.Int64("refeicao_id", ev.SlotID), zap.Error(err))
			}
		}
	}

	s.logger.Debug("sync cycle finished")
	return nil
}

func (s *Service) shouldNotify(status model.QueueStatus) bool {
	return s.notify[status]
}

func (s *Service) toSlots(available []model.MealSlot) []model.Slot {
	slots := make([]model.Slot, 0, len(available))
	for _, a := range available {
		slot := model.Slot{
			ID:               a.ID,
			MenuID:           a.MenuID,
			Date:             a.Date,
			Shift:            a.Shift,
			MainDish:         a.MainDish,
			Remaining:        a.Remaining,
			TotalInscribed:   a.TotalInscribed,
			Cutoff:           a.Cutoff,
			CanInscribe:      a.CanInscribe,
			AlreadyInscribed: a.AlreadyInscribed,
		}
		if a.Cutoff != "" {
			at, err := parse.CutoffAt(a.Date, a.Cutoff, s.loc)
			if err != nil {
				s.logger.Warn("could not parse cutoff", zap.Int64("refeicao_id", a.ID), zap.Error(err))
			} else {
				slot.CutoffAt = &at
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// slotRefs indexes the date and shift of every known slot.
func slotRefs(mine []model.Inscription, available []model.MealSlot) map[int64]model.MealRef {
	refs := make(map[int64]model.MealRef, len(mine)+len(available))
	for _, ins := range mine {
		if ins.Slot != nil {
			refs[ins.SlotID] = model.MealRef{ID: ins.SlotID, Date: ins.Slot.Date, Shift: ins.Slot.Shift}
		}
	}
	for _, a := range available {
		refs[a.ID] = model.MealRef{ID: a.ID, Date: a.Date, Shift: a.Shift}
	}
	return refs
}
