// Package menu reads the published menus.
package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

type Service struct {
	client *gateway.Client
}

func NewService(client *gateway.Client) *Service {
	return &Service{client: client}
}

// Today returns the student's menu of the day.
func (s *Service) Today(ctx context.Context) (model.DailyMenu, error) {
	return s.daily(ctx, gateway.Request{Method: http.MethodGet, Path: s.client.StudentPath("cardapio", "hoje")})
}

// TodayPublic is Today without authentication.
func (s *Service) TodayPublic(ctx context.Context) (model.DailyMenu, error) {
	return s.daily(ctx, gateway.Request{Method: http.MethodGet, Path: "/cardapio/hoje", Public: true})
}

// Weekly lists the menus of the week containing date. Empty arguments are
// left to the backend defaults.
func (s *Service) Weekly(ctx context.Context, shift model.Shift, date string) ([]model.Menu, error) {
	q := url.Values{}
	if shift != "" {
		q.Set("turno", string(shift))
	}
	if date != "" {
		q.Set("data", date)
	}
	return gateway.Get[[]model.Menu](ctx, s.client, "/cardapio/semanal", q)
}

func (s *Service) Monthly(ctx context.Context, shift model.Shift, perPage int) ([]model.Menu, error) {
	q := url.Values{}
	if shift != "" {
		q.Set("turno", string(shift))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return gateway.Get[[]model.Menu](ctx, s.client, "/cardapio/mensal", q)
}

// daily decodes the day object, which some deployments wrap in "data".
func (s *Service) daily(ctx context.Context, r gateway.Request) (model.DailyMenu, error) {
	var raw json.RawMessage
	if err := s.client.Do(ctx, r, &raw); err != nil {
		return model.DailyMenu{}, err
	}
	return decodeDaily(raw)
}

func decodeDaily(raw json.RawMessage) (model.DailyMenu, error) {
	var shape struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return model.DailyMenu{}, fmt.Errorf("failed to decode daily menu: %w", err)
	}
	body := raw
	if d := bytes.TrimSpace(shape.Data); len(d) > 0 && d[0] == '{' {
		body = d
	}
	var day model.DailyMenu
	if err := json.Unmarshal(body, &day); err != nil {
		return model.DailyMenu{}, fmt.Errorf("failed to decode daily menu: %w", err)
	}
	return day, nil
}
