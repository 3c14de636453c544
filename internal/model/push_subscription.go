package model

import (
	"strings"
	"time"
)

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Comma separated queue statuses to be notified about. Empty means all.
	Statuses string `gorm:"column:notify_statuses;not null;default:''"`

	// Empty means every slot.
	Slots []*Slot `gorm:"many2many:subscription_slot_mapping;"`
}

// NotifyStatuses returns the statuses the subscription follows, nil for all.
func (p PushSubscription) NotifyStatuses() []QueueStatus {
	if p.Statuses == "" {
		return nil
	}
	parts := strings.Split(p.Statuses, ",")
	out := make([]QueueStatus, 0, len(parts))
	for _, part := range parts {
		out = append(out, QueueStatus(part))
	}
	return out
}

// SetNotifyStatuses stores the given statuses, dropping duplicates.
func (p *PushSubscription) SetNotifyStatuses(statuses []QueueStatus) {
	seen := make(map[QueueStatus]bool, len(statuses))
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, string(s))
	}
	p.Statuses = strings.Join(parts, ",")
}

// Wants reports whether an event with the given status should reach this
// subscription.
func (p PushSubscription) Wants(status QueueStatus) bool {
	statuses := p.NotifyStatuses()
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
