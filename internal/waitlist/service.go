// Package waitlist implements the extra-meal waitlist ("fila de extras"):
// the backend repository and the coordinator that owns the student's view
// of it.
package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

// Repository is the backend surface the Coordinator depends on.
type Repository interface {
	ListMine(ctx context.Context) ([]model.Inscription, error)
	ListAvailable(ctx context.Context) ([]model.MealSlot, error)
	Inscribe(ctx context.Context, slotID int64) (model.Inscription, error)
	Position(ctx context.Context) ([]model.QueuePosition, error)
	Cancel(ctx context.Context, inscriptionID int64) error
}

// Service implements Repository over the gateway.
type Service struct {
	client *gateway.Client
	logger *zap.Logger
}

func NewService(client *gateway.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

func (s *Service) ListMine(ctx context.Context) ([]model.Inscription, error) {
	return gateway.Get[[]model.Inscription](ctx, s.client, s.client.StudentPath("fila-extras"), nil)
}

// ListAvailable tolerates both historical payload shapes. A payload of any
// other shape is logged and treated as no slots.
func (s *Service) ListAvailable(ctx context.Context) ([]model.MealSlot, error) {
	raw, err := gateway.Get[json.RawMessage](ctx, s.client, s.client.StudentPath("fila-extras", "disponiveis"), nil)
	if err != nil {
		return nil, err
	}
	slots, err := decodeAvailable(raw)
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		s.logger.Warn("available slots payload has an unexpected shape, treating as empty", zap.Error(err))
		return []model.MealSlot{}, nil
	}
	return slots, err
}

func (s *Service) Inscribe(ctx context.Context, slotID int64) (model.Inscription, error) {
	env, err := gateway.Fetch[model.Inscription](ctx, s.client, gateway.Request{
		Method: http.MethodPost,
		Path:   s.client.StudentPath("fila-extras"),
		Body:   model.InscriptionRequest{SlotID: slotID},
	})
	if err != nil {
		return model.Inscription{}, err
	}
	return env.Data, nil
}

func (s *Service) Position(ctx context.Context) ([]model.QueuePosition, error) {
	return gateway.Get[[]model.QueuePosition](ctx, s.client, s.client.StudentPath("fila-extras", "posicao"), nil)
}

func (s *Service) Cancel(ctx context.Context, inscriptionID int64) error {
	return s.client.Do(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   s.client.StudentPath("fila-extras", strconv.FormatInt(inscriptionID, 10)),
	}, nil)
}

// wrappedSlots is the object form of the available-slots payload.
type wrappedSlots struct {
	Slots       *[]model.MealSlot `json:"refeicoes"`
	Date        string            `json:"data"`
	CurrentTime string            `json:"hora_atual"`
}

// decodeAvailable normalizes the "data" member of the available-slots
// response: a bare list, an object with a "refeicoes" list, or null.
func decodeAvailable(raw json.RawMessage) ([]model.MealSlot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.MealSlot{}, nil
	}

	switch trimmed[0] {
	case '[':
		var slots []model.MealSlot
		if err := json.Unmarshal(trimmed, &slots); err != nil {
			return nil, &ShapeError{Snippet: snippet(trimmed), Err: err}
		}
		return slots, nil
	case '{':
		var w wrappedSlots
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, &ShapeError{Snippet: snippet(trimmed), Err: err}
		}
		if w.Slots == nil {
			return nil, &ShapeError{Snippet: snippet(trimmed)}
		}
		return *w.Slots, nil
	default:
		return nil, &ShapeError{Snippet: snippet(trimmed)}
	}
}

func snippet(b []byte) string {
	const limit = 80
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
