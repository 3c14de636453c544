package notification

import (
	"context"
	"net/http"
	"strconv"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

// Service wraps the student's notification inbox endpoints.
type Service struct {
	client *gateway.Client
}

func NewService(client *gateway.Client) *Service {
	return &Service{client: client}
}

func (s *Service) List(ctx context.Context) ([]model.Notification, error) {
	return gateway.Get[[]model.Notification](ctx, s.client, s.client.StudentPath("notificacoes"), nil)
}

func (s *Service) Unread(ctx context.Context) ([]model.Notification, error) {
	return gateway.Get[[]model.Notification](ctx, s.client, s.client.StudentPath("notificacoes", "nao-lidas"), nil)
}

func (s *Service) Counter(ctx context.Context) (model.NotificationCounter, error) {
	return gateway.Get[model.NotificationCounter](ctx, s.client, s.client.StudentPath("notificacoes", "contador"), nil)
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.client.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   s.client.StudentPath("notificacoes", strconv.FormatInt(id, 10), "ler"),
	}, nil)
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.client.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   s.client.StudentPath("notificacoes", "marcar-todas-lidas"),
	}, nil)
}
