package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/store"
	"refeitorio-client/internal/waitlist"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	coord   *waitlist.Coordinator
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, coord *waitlist.Coordinator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		coord:   coord,
		logger:  logger,
	}
}

// statusFor maps a backend failure to the status returned to local clients.
func statusFor(err error) int {
	if errors.Is(err, waitlist.ErrAlreadyInscribed) {
		return http.StatusConflict
	}
	switch gateway.KindOf(err) {
	case gateway.KindConflict:
		return http.StatusConflict
	case gateway.KindValidation:
		return http.StatusUnprocessableEntity
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindUnauthorized:
		return http.StatusUnauthorized
	case gateway.KindForbidden:
		return http.StatusForbidden
	case gateway.KindServer, gateway.KindDecode:
		return http.StatusBadGateway
	case gateway.KindNetwork:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("backend call failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": gateway.Message(err, "")})
}
