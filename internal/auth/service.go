// Package auth talks to the /auth endpoints and drives the session lifecycle.
package auth

import (
	"context"
	"net/http"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

// Service wraps the authentication endpoints.
type Service struct {
	client *gateway.Client
}

func NewService(client *gateway.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.AuthPayload, error) {
	env, err := gateway.Fetch[model.AuthPayload](ctx, s.client, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   req,
		Public: true,
	})
	if err != nil {
		return model.AuthPayload{}, err
	}
	return env.Data, nil
}

func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (model.AuthPayload, error) {
	env, err := gateway.Fetch[model.AuthPayload](ctx, s.client, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   req,
		Public: true,
	})
	if err != nil {
		return model.AuthPayload{}, err
	}
	return env.Data, nil
}

func (s *Service) Me(ctx context.Context) (model.User, error) {
	return gateway.Get[model.User](ctx, s.client, "/auth/me", nil)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.client.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
}
