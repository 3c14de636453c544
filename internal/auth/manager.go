package auth

import (
	"context"

	"go.uber.org/zap"

	"refeitorio-client/internal/model"
	"refeitorio-client/internal/session"
)

// Backend is the subset of Service the Manager needs.
type Backend interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthPayload, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthPayload, error)
	Me(ctx context.Context) (model.User, error)
	Logout(ctx context.Context) error
}

// Persister keeps the session across process restarts. session.FileStore
// satisfies it.
type Persister interface {
	Save(st session.State) error
	Clear() error
}

// Manager couples backend calls with the local session.
type Manager struct {
	backend Backend
	sess    *session.Session
	persist Persister
	logger  *zap.Logger
}

// NewManager creates a Manager. persist may be nil.
func NewManager(backend Backend, sess *session.Session, persist Persister, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{backend: backend, sess: sess, persist: persist, logger: logger}
}

func (m *Manager) Login(ctx context.Context, req model.LoginRequest) (model.AuthPayload, error) {
	payload, err := m.backend.Login(ctx, req)
	if err != nil {
		return model.AuthPayload{}, err
	}
	m.start(payload)
	return payload, nil
}

func (m *Manager) Register(ctx context.Context, req model.RegisterRequest) (model.AuthPayload, error) {
	payload, err := m.backend.Register(ctx, req)
	if err != nil {
		return model.AuthPayload{}, err
	}
	m.start(payload)
	return payload, nil
}

func (m *Manager) start(payload model.AuthPayload) {
	m.sess.Init(payload)
	m.save()
}

// FetchMe refreshes the cached user. It does nothing without a token; on
// failure the session is torn down and the error returned.
func (m *Manager) FetchMe(ctx context.Context) error {
	if !m.sess.IsAuthenticated() {
		return nil
	}
	user, err := m.backend.Me(ctx)
	if err != nil {
		m.clear()
		return err
	}
	m.sess.SetUser(user)
	m.save()
	return nil
}

// Logout always clears the local session, even when the backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.backend.Logout(ctx)
	if err != nil {
		m.logger.Warn("logout request failed, clearing local session anyway", zap.Error(err))
	}
	m.clear()
	return err
}

func (m *Manager) clear() {
	m.sess.Teardown()
	if m.persist == nil {
		return
	}
	if err := m.persist.Clear(); err != nil {
		m.logger.Warn("failed to clear persisted session", zap.Error(err))
	}
}

func (m *Manager) save() {
	if m.persist == nil {
		return
	}
	if err := m.persist.Save(m.sess.Snapshot()); err != nil {
		m.logger.Warn("failed to persist session", zap.Error(err))
	}
}
