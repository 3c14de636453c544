package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"refeitorio-client/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

const subscriptionQuery = `SELECT .* FROM "push_subscriptions" WHERE endpoint IN \(SELECT .*subscription_slot_mapping.*slot_id = \$1\) OR endpoint NOT IN \(SELECT .*subscription_slot_mapping.*\)`

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{}, nil)

	wp.Dispatch(model.PositionEvent{SlotID: 123, Status: model.QueueNext})

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(123), job.SlotID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification with slot details from the event", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)

				var msg PushMessage
				assert.NoError(t, json.Unmarshal(payload, &msg))
				assert.Equal(t, "Você é o próximo da fila", msg.Title)
				assert.Equal(t, "Você é o próximo da fila de extras: almoço de 2024-05-02.", msg.Body)
				assert.Equal(t, "1/4", msg.Ranking)
				return okResponse(), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs(int64(101)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/push", "test_p256dh", "test_auth", time.Now()))

		wp.Dispatch(model.PositionEvent{SlotID: 101, Date: "2024-05-02", Shift: model.ShiftLunch, Position: 1, Total: 4, Status: model.QueueNext})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("looks up the mirrored slot when the event has no date", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				var msg PushMessage
				assert.NoError(t, json.Unmarshal(payload, &msg))
				assert.Equal(t, "Sua vaga extra foi confirmada: jantar de 2024-05-03.", msg.Body)
				return okResponse(), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs(int64(102)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/push", "p", "a", time.Now()))
		mock.ExpectQuery(`SELECT "date","shift" FROM "slots" WHERE "slots"."id" = \$1 ORDER BY "slots"."id" LIMIT \$[0-9]+`).
			WithArgs(int64(102), 1).
			WillReturnRows(sqlmock.NewRows([]string{"date", "shift"}).AddRow("2024-05-03", "jantar"))

		wp.Dispatch(model.PositionEvent{SlotID: 102, Status: model.QueueConfirmed})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back to slot id when lookup fails", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				var msg PushMessage
				assert.NoError(t, json.Unmarshal(payload, &msg))
				assert.Equal(t, "Você é o próximo da fila de extras: refeição 103.", msg.Body)
				return okResponse(), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs(int64(103)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/fallback", "p", "a", time.Now()))
		mock.ExpectQuery(`SELECT "date","shift" FROM "slots" WHERE "slots"."id" = \$1 ORDER BY "slots"."id" LIMIT \$[0-9]+`).
			WithArgs(int64(103), 1).
			WillReturnError(fmt.Errorf("slot not found"))

		wp.Dispatch(model.PositionEvent{SlotID: 103, Status: model.QueueNext})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips subscriptions not following the status", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				return okResponse(), nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs(int64(105)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at", "notify_statuses"}).
				AddRow("https://example.com/confirmed-only", "p", "a", time.Now(), "confirmado").
				AddRow("https://example.com/next", "p", "a", time.Now(), "aguardando,proximo"))

		wp.Dispatch(model.PositionEvent{SlotID: 105, Date: "2024-05-05", Shift: model.ShiftLunch, Status: model.QueueNext})
		wg.Wait()
		// A second send would have panicked on the drained WaitGroup.
		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		assert.Equal(t, []string{"https://example.com/next"}, endpoints)
		mu.Unlock()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectQuery(subscriptionQuery).
			WithArgs(int64(104)).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/expired", "p", "a", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(model.PositionEvent{SlotID: 104, Date: "2024-05-04", Shift: model.ShiftLunch, Status: model.QueueNext})

		// Allow the worker to process the job.
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPushSubscription_Wants(t *testing.T) {
	var sub model.PushSubscription
	assert.True(t, sub.Wants(model.QueueWaiting))

	sub.SetNotifyStatuses([]model.QueueStatus{model.QueueConfirmed, model.QueueNext, model.QueueConfirmed})
	assert.Equal(t, "confirmado,proximo", sub.Statuses)
	assert.True(t, sub.Wants(model.QueueNext))
	assert.False(t, sub.Wants(model.QueueWaiting))
}

func TestBuildMessage_WaitingStatus(t *testing.T) {
	msg := buildMessage(model.PositionEvent{SlotID: 1, Date: "2024-05-02", Shift: model.ShiftDinner, Position: 3, Total: 9, Status: model.QueueWaiting})
	assert.Equal(t, "Fila de extras atualizada", msg.Title)
	assert.Equal(t, "Nova posição na fila de extras (jantar de 2024-05-02): 3 de 9.", msg.Body)
}
