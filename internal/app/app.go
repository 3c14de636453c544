// Package app wires the waitlist client for the CLI and the daemon.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"refeitorio-client/config"
	"refeitorio-client/internal/admin"
	"refeitorio-client/internal/auth"
	"refeitorio-client/internal/gateway"
	"refeitorio-client/internal/menu"
	"refeitorio-client/internal/model"
	"refeitorio-client/internal/notification"
	"refeitorio-client/internal/session"
	"refeitorio-client/internal/waitlist"
)

// ErrNoCredentials is returned by EnsureSession when there is no saved
// session, no configured token and no matricula/password to log in with.
var ErrNoCredentials = errors.New("not logged in and no credentials configured")

// App holds the backend-facing dependencies.
type App struct {
	Cfg           *config.Config
	Logger        *zap.Logger
	Session       *session.Session
	SessionFile   *session.FileStore
	Client        *gateway.Client
	Auth          *auth.Manager
	Waitlist      *waitlist.Coordinator
	Notifications *notification.Service
	Inbox         *notification.Inbox
	Menu          *menu.Service
	Admin         *admin.Service
}

// New builds the client graph. Logging out resets every state holder.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Cfg: cfg, Logger: logger}

	a.Session = session.New(logger.Named("session"))
	var persist auth.Persister
	if cfg.Session.TokenFile != "" {
		fs, err := session.NewFileStore(cfg.Session.TokenFile)
		if err != nil {
			return nil, err
		}
		a.SessionFile = fs
		persist = fs
	}

	a.Client = gateway.New(cfg.API, a.Session, logger.Named("gateway"))
	a.Auth = auth.NewManager(auth.NewService(a.Client), a.Session, persist, logger.Named("auth"))

	repo := waitlist.NewService(a.Client, logger.Named("waitlist"))
	a.Waitlist = waitlist.NewCoordinator(repo, waitlist.NewBusyPolicy(cfg.Waitlist.BusyPolicy), logger.Named("waitlist"))

	a.Notifications = notification.NewService(a.Client)
	a.Inbox = notification.NewInbox(a.Notifications, logger.Named("inbox"))
	a.Menu = menu.NewService(a.Client)
	a.Admin = admin.NewService(a.Client, a.Session, logger.Named("admin"))

	a.Session.OnTeardown(a.Waitlist.Reset)
	a.Session.OnTeardown(a.Inbox.Reset)
	return a, nil
}

// Restore loads a saved session or the configured token. It reports
// whether a session is active afterwards.
func (a *App) Restore(ctx context.Context) (bool, error) {
	if a.SessionFile != nil {
		st, ok, err := a.SessionFile.Load()
		if err != nil {
			a.Logger.Warn("ignoring unreadable session file", zap.String("path", a.SessionFile.Path()), zap.Error(err))
		} else if ok {
			a.Session.Restore(st.Token, st.User)
		}
	}
	if !a.Session.IsAuthenticated() && a.Cfg.Session.Token != "" {
		a.Session.Restore(a.Cfg.Session.Token, nil)
	}
	if !a.Session.IsAuthenticated() {
		return false, nil
	}
	if _, ok := a.Session.User(); !ok {
		if err := a.Auth.FetchMe(ctx); err != nil {
			return false, fmt.Errorf("failed to restore session: %w", err)
		}
	}
	return true, nil
}

// EnsureSession restores a session or logs in with the configured
// credentials.
func (a *App) EnsureSession(ctx context.Context) error {
	ok, err := a.Restore(ctx)
	if err != nil {
		a.Logger.Warn("saved session rejected", zap.Error(err))
	}
	if ok {
		return nil
	}
	if a.Cfg.Session.Matricula == "" || a.Cfg.Session.Password == "" {
		if err != nil {
			return err
		}
		return ErrNoCredentials
	}
	_, err = a.Auth.Login(ctx, model.LoginRequest{
		Matricula: a.Cfg.Session.Matricula,
		Password:  a.Cfg.Session.Password,
	})
	return err
}
