// Package commands holds the fila subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"go.uber.org/zap"

	"refeitorio-client/config"
	"refeitorio-client/internal/app"
	"refeitorio-client/internal/logging"
)

// AppContext holds the application dependencies shared by all commands.
type AppContext struct {
	*app.App
	Ctx context.Context
	Out io.Writer
}

// Init loads configuration, builds the client and restores any saved
// session. It does not require one; commands that do call requireSession.
func (a *AppContext) Init(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		// Keep command output readable.
		cfg.Log.Level = "warn"
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.App, err = app.New(cfg, logger)
	if err != nil {
		return err
	}
	if _, err := a.Restore(a.Ctx); err != nil {
		logger.Debug("no usable saved session", zap.Error(err))
	}
	return nil
}

func (a *AppContext) requireSession() error {
	if err := a.EnsureSession(a.Ctx); err != nil {
		return fmt.Errorf("faça login com `fila login`: %w", err)
	}
	return nil
}

func (a *AppContext) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %q", raw)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
