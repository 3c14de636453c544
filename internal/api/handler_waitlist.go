package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"refeitorio-client/internal/waitlist"
)

const defaultHistoryLimit = 50

// GetAvailable refreshes and returns the slots open for inscription.
func (h *Handler) GetAvailable(c *gin.Context) {
	if err := h.coord.LoadAvailable(c.Request.Context(), false); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.coord.Available()})
}

// GetPositions refreshes and returns the student's queue positions.
func (h *Handler) GetPositions(c *gin.Context) {
	if err := h.coord.LoadPositions(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.coord.Positions()})
}

// GetMine refreshes and returns the student's inscriptions. Backend failures
// yield an empty list.
func (h *Handler) GetMine(c *gin.Context) {
	h.coord.LoadMine(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"data":  h.coord.Mine(),
		"state": h.coord.State(waitlist.ResourceMine).String(),
	})
}

type inscribeRequest struct {
	SlotID int64 `json:"refeicao_id" binding:"required,gt=0"`
}

// PostInscription claims a place in a slot's queue.
func (h *Handler) PostInscription(c *gin.Context) {
	var req inscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ins, err := h.coord.Inscribe(c.Request.Context(), req.SlotID)
	var refreshErr *waitlist.RefreshError
	switch {
	case errors.As(err, &refreshErr):
		h.logger.Warn("inscribed but slots were not refreshed", zap.Error(err))
		c.JSON(http.StatusCreated, gin.H{"data": ins, "warning": refreshErr.Error()})
	case err != nil:
		h.writeError(c, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"data": ins})
	}
}

// DeleteInscription cancels an inscription by its ID.
func (h *Handler) DeleteInscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inscription id"})
		return
	}

	err = h.coord.Cancel(c.Request.Context(), id)
	var refreshErr *waitlist.RefreshError
	if err != nil && !errors.As(err, &refreshErr) {
		h.writeError(c, err)
		return
	}
	if refreshErr != nil {
		h.logger.Warn("canceled but slots were not refreshed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// GetPositionHistory returns the mirrored standings of a slot, newest first.
func (h *Handler) GetPositionHistory(c *gin.Context) {
	slotID, err := strconv.ParseInt(c.Param("refeicao_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid refeicao_id"})
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	history, err := h.store.PositionHistory(c.Request.Context(), slotID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}
