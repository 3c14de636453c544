package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"refeitorio-client/config"
	"refeitorio-client/internal/api"
	"refeitorio-client/internal/app"
	"refeitorio-client/internal/db"
	"refeitorio-client/internal/events"
	"refeitorio-client/internal/logging"
	"refeitorio-client/internal/notification"
	"refeitorio-client/internal/store"
	"refeitorio-client/internal/watcher"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build client", zap.Error(err))
	}
	if err := a.EnsureSession(ctx); err != nil {
		logger.Fatal("failed to establish a session", zap.Error(err))
	}
	if user, ok := a.Session.User(); ok {
		logger.Info("session ready", zap.Int64("user_id", user.ID), zap.String("perfil", string(user.Role)))
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	appStore := store.NewGormStore(gormDB, logger.Named("store"))

	publisher := events.New(cfg.Redis, logger.Named("events"))
	defer publisher.Close()

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger.Named("push"))
	if webpushOptions != nil {
		workerPool.Start(ctx)
	} else {
		// Drain the queue so the watcher never blocks on it.
		go func() {
			for {
				select {
				case <-workerPool.Jobs():
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Run the watcher in the background
	watcherSvc, err := watcher.NewService(cfg, a.Waitlist, appStore, workerPool, publisher, logger.Named("watcher"))
	if err != nil {
		logger.Fatal("failed to create watcher", zap.Error(err))
	}
	go watcherSvc.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, webpushOptions, a.Waitlist, logger.Named("api"))
	router := api.NewRouter(cfg.Server, handler, logger.Named("http"))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
