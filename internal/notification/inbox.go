package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"refeitorio-client/internal/model"
)

// InboxBackend is the subset of Service the Inbox needs.
type InboxBackend interface {
	Unread(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// Inbox holds the unread notifications of the session. Every operation is
// fail-soft: backend errors are logged, never returned.
type Inbox struct {
	backend InboxBackend
	logger  *zap.Logger
	loading atomic.Bool
	now     func() time.Time

	mu    sync.RWMutex
	items []model.Notification
}

func NewInbox(backend InboxBackend, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{backend: backend, logger: logger, now: time.Now, items: []model.Notification{}}
}

// LoadUnread replaces the inbox with the unread notifications. Overlapping
// calls are dropped.
func (in *Inbox) LoadUnread(ctx context.Context) {
	if !in.loading.CompareAndSwap(false, true) {
		return
	}
	defer in.loading.Store(false)

	items, err := in.backend.Unread(ctx)
	if err != nil {
		in.logger.Debug("failed to load notifications", zap.Error(err))
		items = []model.Notification{}
	}
	if items == nil {
		items = []model.Notification{}
	}
	in.mu.Lock()
	in.items = items
	in.mu.Unlock()
}

func (in *Inbox) MarkRead(ctx context.Context, id int64) {
	if err := in.backend.MarkRead(ctx, id); err != nil {
		in.logger.Warn("failed to mark notification as read", zap.Int64("id", id), zap.Error(err))
		return
	}
	readAt := in.now().UTC().Format(time.RFC3339)
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		if in.items[i].ID == id {
			in.items[i].Read = true
			in.items[i].ReadAt = &readAt
		}
	}
}

func (in *Inbox) MarkAllRead(ctx context.Context) {
	if err := in.backend.MarkAllRead(ctx); err != nil {
		in.logger.Warn("failed to mark all notifications as read", zap.Error(err))
		return
	}
	readAt := in.now().UTC().Format(time.RFC3339)
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.items {
		in.items[i].Read = true
		in.items[i].ReadAt = &readAt
	}
}

// Items returns a copy of every loaded notification.
func (in *Inbox) Items() []model.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]model.Notification, len(in.items))
	copy(out, in.items)
	return out
}

// Unread returns the loaded notifications not yet marked read.
func (in *Inbox) Unread() []model.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]model.Notification, 0, len(in.items))
	for _, n := range in.items {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

func (in *Inbox) UnreadCount() int {
	return len(in.Unread())
}

// Reset empties the inbox on logout.
func (in *Inbox) Reset() {
	in.mu.Lock()
	in.items = []model.Notification{}
	in.mu.Unlock()
}
