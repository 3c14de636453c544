package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"refeitorio-client/config"
	"refeitorio-client/internal/db"
	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/notification"
	"refeitorio-client/internal/store"
	"refeitorio-client/internal/waitlist"
	"refeitorio-client/internal/watcher"
)

// scriptedBackend serves the waitlist endpoints, advancing through a list of
// position payloads on each call to /posicao.
type scriptedBackend struct {
	mu        sync.Mutex
	positions [][]model.QueuePosition
	calls     int
}

func (b *scriptedBackend) setPositions(p [][]model.QueuePosition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = p
	b.calls = 0
}

func (b *scriptedBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var data any
	switch r.URL.Path {
	case "/estudante/fila-extras":
		data = []model.Inscription{
			{ID: 1, SlotID: 101, Slot: &model.MealRef{ID: 101, Date: "2024-05-02", Shift: model.ShiftLunch}},
		}
	case "/estudante/fila-extras/disponiveis":
		data = map[string]any{
			"refeicoes": []model.MealSlot{
				{ID: 101, Date: "2024-05-02", Shift: model.ShiftLunch, Remaining: 2, Cutoff: "10:30"},
			},
			"data":       "2024-05-02",
			"hora_atual": "09:00",
		}
	case "/estudante/fila-extras/posicao":
		current := []model.QueuePosition{}
		if b.calls < len(b.positions) {
			current = b.positions[b.calls]
		}
		b.calls++
		data = current
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func setupTest(t *testing.T) (*gorm.DB, *watcher.Service, *scriptedBackend, *notification.WorkerPool) {
	t.Helper()

	// An in-memory SQLite database per test.
	testDB, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(testDB))

	backend := &scriptedBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		API: config.APIConfig{BaseURL: server.URL, StudentPrefix: "estudante", Timeout: 5 * time.Second},
		Watcher: config.WatcherConfig{
			Timezone:       "America/Sao_Paulo",
			NotifyStatuses: []string{"proximo", "confirmado"},
		},
	}

	client := gateway.New(cfg.API, nil, nil)
	coord := waitlist.NewCoordinator(waitlist.NewService(client, nil), waitlist.NewBusyPolicy("shared"), nil)
	gormStore := store.NewGormStore(testDB, nil)
	pool := notification.NewWorkerPool(4, testDB, nil, nil)

	service, err := watcher.NewService(cfg, coord, gormStore, pool, nil, nil)
	require.NoError(t, err)
	return testDB, service, backend, pool
}

// TestPositionLifecycle follows one inscription from waiting to next in
// line to served, and verifies the mirror at each step.
func TestPositionLifecycle(t *testing.T) {
	testDB, service, backend, pool := setupTest(t)
	ctx := context.Background()

	backend.setPositions([][]model.QueuePosition{
		{{SlotID: 101, Position: 3, Total: 5, Status: model.QueueWaiting, Estimate: "3 pessoas"}},
		{{SlotID: 101, Position: 1, Total: 5, Status: model.QueueNext, Estimate: "em breve"}},
		{},
	})

	var firstObservedAt time.Time
	t.Run("Cycle 1: Standing is recorded", func(t *testing.T) {
		require.NoError(t, service.SyncOnce(ctx))

		var open model.PositionOpen
		require.NoError(t, testDB.Where("slot_id = ?", 101).First(&open).Error)
		assert.Equal(t, 3, open.Position)
		assert.Equal(t, model.QueueWaiting, open.Status)
		assert.WithinDuration(t, time.Now(), open.ObservedAt, 5*time.Second)

		var slot model.Slot
		require.NoError(t, testDB.First(&slot, 101).Error)
		assert.Equal(t, 2, slot.Remaining)
		require.NotNil(t, slot.CutoffAt)

		var historyCount int64
		testDB.Model(&model.PositionHistory{}).Where("slot_id = ?", 101).Count(&historyCount)
		assert.Equal(t, int64(0), historyCount, "position_histories should be empty")

		assert.Len(t, pool.Jobs(), 0, "waiting is not a notify status")
		firstObservedAt = open.ObservedAt
	})

	t.Run("Cycle 2: Becomes next in line", func(t *testing.T) {
		require.NoError(t, service.SyncOnce(ctx))

		var open model.PositionOpen
		require.NoError(t, testDB.Where("slot_id = ?", 101).First(&open).Error)
		assert.Equal(t, model.QueueNext, open.Status)

		var history model.PositionHistory
		require.NoError(t, testDB.Where("slot_id = ?", 101).First(&history).Error)
		assert.Equal(t, 3, history.Position)
		assert.Equal(t, model.QueueWaiting, history.Status)
		assert.Equal(t, firstObservedAt.Unix(), history.PeriodStart.Unix())

		require.Len(t, pool.Jobs(), 1)
		ev := <-pool.Jobs()
		assert.Equal(t, int64(101), ev.SlotID)
		assert.Equal(t, model.QueueNext, ev.Status)
		assert.Equal(t, model.QueueWaiting, ev.PreviousStatus)
		assert.Equal(t, "2024-05-02", ev.Date)
		assert.Equal(t, model.ShiftLunch, ev.Shift)
	})

	t.Run("Cycle 3: Standing disappears", func(t *testing.T) {
		require.NoError(t, service.SyncOnce(ctx))

		var openCount int64
		testDB.Model(&model.PositionOpen{}).Where("slot_id = ?", 101).Count(&openCount)
		assert.Equal(t, int64(0), openCount, "position_opens should be empty")

		var historyCount int64
		testDB.Model(&model.PositionHistory{}).Where("slot_id = ?", 101).Count(&historyCount)
		assert.Equal(t, int64(2), historyCount)
		assert.Len(t, pool.Jobs(), 0)
	})
}

// TestPositionHistory checks the store's history query against the mirror.
func TestPositionHistory(t *testing.T) {
	testDB, service, backend, _ := setupTest(t)
	ctx := context.Background()

	backend.setPositions([][]model.QueuePosition{
		{{SlotID: 101, Position: 4, Total: 4, Status: model.QueueWaiting}},
		{{SlotID: 101, Position: 3, Total: 4, Status: model.QueueWaiting}},
		{{SlotID: 101, Position: 2, Total: 4, Status: model.QueueWaiting}},
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, service.SyncOnce(ctx))
	}

	gormStore := store.NewGormStore(testDB, nil)
	history, err := gormStore.PositionHistory(ctx, 101, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Position, "newest first")
	assert.Equal(t, 4, history[1].Position)

	limited, err := gormStore.PositionHistory(ctx, 101, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	open, err := gormStore.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 2, open[0].Position)
}
