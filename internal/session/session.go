// Package session holds the authenticated user and token for the lifetime
// of a login. It is the token source of the authenticated gateway client.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/model"
)

// Both match gateway.ErrUnauthenticated, so calls made without a usable
// session fail as unauthorized rather than as network errors.
var (
	// ErrNoSession is returned by Token when nobody is logged in.
	ErrNoSession error = sessionError("no active session")
	// ErrExpired is returned by Token once a JWT session has passed its expiry.
	ErrExpired error = sessionError("session expired")
)

type sessionError string

func (e sessionError) Error() string { return string(e) }

func (e sessionError) Is(target error) bool { return target == gateway.ErrUnauthenticated }

// Session is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	user   *model.User
	token  string
	expiry time.Time
	hooks  []func()
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{logger: logger, now: time.Now}
}

// Init starts a session from a login or register response.
func (s *Session) Init(payload model.AuthPayload) {
	user := payload.User
	s.mu.Lock()
	s.user = &user
	s.setTokenLocked(payload.Token)
	s.mu.Unlock()
	s.logger.Info("session started", zap.Int64("user_id", user.ID), zap.String("perfil", string(user.Role)))
}

// Restore starts a session from a previously issued token. The user is
// filled in later by SetUser, typically after a /auth/me call.
func (s *Session) Restore(token string, user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokenLocked(token)
	if user != nil {
		u := *user
		s.user = &u
	}
}

func (s *Session) setTokenLocked(token string) {
	s.token = token
	s.expiry = tokenExpiry(token)
}

// SetUser replaces the cached user.
func (s *Session) SetUser(user model.User) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
}

// User returns a copy of the current user.
func (s *Session) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// RawToken returns the bearer token, empty when logged out.
func (s *Session) RawToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Expiry is zero when the token carries no readable expiry.
func (s *Session) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return nil, ErrNoSession
	}
	if !s.expiry.IsZero() && s.now().After(s.expiry) {
		return nil, ErrExpired
	}
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer", Expiry: s.expiry}, nil
}

func (s *Session) IsAuthenticated() bool {
	return s.RawToken() != ""
}

func (s *Session) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.Role == model.RoleAdmin
}

func (s *Session) IsStudent() bool {
	u, ok := s.User()
	return ok && u.Role == model.RoleStudent
}

func (s *Session) IsBolsista() bool {
	u, ok := s.User()
	return ok && u.Bolsista
}

// OnTeardown registers fn to run on every Teardown, in registration order.
func (s *Session) OnTeardown(fn func()) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Teardown clears the user and token and runs the registered hooks.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.expiry = time.Time{}
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	s.logger.Info("session cleared")
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque
// tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
