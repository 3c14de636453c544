package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"refeitorio-client/internal/model"
)

var errUnknownSlot = errors.New("unknown slot")

// subscriptionRequest follows either specific slots or every slot, and
// optionally only some queue statuses.
type subscriptionRequest struct {
	Endpoint        string              `json:"endpoint" binding:"required"`
	P256DH          string              `json:"p256dh" binding:"required"`
	Auth            string              `json:"auth" binding:"required"`
	SubscribedSlots []int64             `json:"subscribed_slots" binding:"omitempty,dive,gt=0"`
	NotifyStatuses  []model.QueueStatus `json:"notify_statuses" binding:"omitempty,dive,oneof=aguardando proximo confirmado"`
}

type subscriptionView struct {
	SubscribedSlots []int64             `json:"subscribed_slots"`
	NotifyStatuses  []model.QueueStatus `json:"notify_statuses"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newSubscriptionView(sub model.PushSubscription) subscriptionView {
	view := subscriptionView{
		SubscribedSlots: make([]int64, 0, len(sub.Slots)),
		NotifyStatuses:  sub.NotifyStatuses(),
		CreatedAt:       sub.CreatedAt,
	}
	for _, slot := range sub.Slots {
		view.SubscribedSlots = append(view.SubscribedSlots, slot.ID)
	}
	sort.Slice(view.SubscribedSlots, func(i, j int) bool { return view.SubscribedSlots[i] < view.SubscribedSlots[j] })
	if view.NotifyStatuses == nil {
		view.NotifyStatuses = []model.QueueStatus{}
	}
	return view
}

// PutSubscription creates or replaces a subscription. Slots must already be
// mirrored; an empty slot list follows every slot and an empty status list
// every status.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	subscription.SetNotifyStatuses(req.NotifyStatuses)

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var slots []*model.Slot
		if len(req.SubscribedSlots) > 0 {
			if err := tx.Find(&slots, req.SubscribedSlots).Error; err != nil {
				return err
			}
			if len(slots) != len(uniqueIDs(req.SubscribedSlots)) {
				return errUnknownSlot
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "notify_statuses"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		if err := tx.Model(&subscription).Association("Slots").Replace(&slots); err != nil {
			return err
		}
		return tx.Preload("Slots").First(&subscription, "endpoint = ?", subscription.Endpoint).Error
	})

	switch {
	case errors.Is(err, errUnknownSlot):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "subscribed_slots contains a slot that is not mirrored"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, newSubscriptionView(subscription))
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes a subscription and its slot mapping.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Select(clause.Associations).
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL-decoding it; push endpoints
// are stored exactly as the browser reported them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns what a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	var subscription model.PushSubscription
	if err := h.store.DB().WithContext(c.Request.Context()).Preload("Slots").First(&subscription, "endpoint = ?", raw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, newSubscriptionView(subscription))
}
