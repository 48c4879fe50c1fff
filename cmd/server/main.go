package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/portfolio/backend/internal/config"
	"github.com/portfolio/backend/internal/handler"
	"github.com/portfolio/backend/internal/logging"
	"github.com/portfolio/backend/internal/notify"
	"github.com/portfolio/backend/internal/repository"
	"github.com/portfolio/backend/internal/service"
	"github.com/portfolio/backend/pkg/auth"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		logging.Setup("INFO", "json")
		logging.Fatal("failed to load config", "error", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		logging.Fatal("server stopped", "error", err)
	}
}

// run serves until SIGINT/SIGTERM or a listener failure. Every resource it
// opens is released before it returns.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg.Store.Options())
	if err != nil {
		return fmt.Errorf("connect to %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("store close failed", "error", err)
		}
	}()
	slog.Info("store connected", "driver", cfg.Store.Driver)

	if cfg.Store.AutoMigrate {
		if err := store.Migrator.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare %s store schema: %w", cfg.Store.Driver, err)
		}
	}

	var svcOpts []service.ContactOption
	if cfg.RedisURL != "" {
		rdb, err := notify.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		publisher := notify.NewPublisher(rdb, cfg.NotifyQueue)
		defer publisher.Close()
		if err := publisher.Ping(ctx); err != nil {
			// Notifications are best-effort; the form keeps working without Redis.
			slog.Warn("redis unreachable, notifications may be lost", "error", err)
		}
		svcOpts = append(svcOpts, service.WithNotifier(publisher))
		slog.Info("submission notifier enabled", "queue", cfg.NotifyQueue)
	}

	contactService := service.NewContactService(store.Contacts, svcOpts...)
	h := handler.New(store, cfg.CORSOrigin)
	contactHandler := handler.NewContactHandler(contactService, cfg.MaxBodyBytes)

	var limiter *handler.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = handler.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, cfg.TrustedProxies)
		limiter.StartJanitor(ctx, 5*time.Minute)
	}

	mux := newMux(h, contactHandler, limiter, cfg.AdminToken)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.SecurityHeaders(handler.RequestLogger(h.CORS(mux))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newMux registers every route. Admin routes exist only when adminToken is set;
// a nil limiter leaves the submit route unthrottled.
func newMux(h *handler.Handler, contactHandler *handler.ContactHandler, limiter *handler.RateLimiter, adminToken string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /api/health", h.Health)

	var submit http.Handler = http.HandlerFunc(contactHandler.Submit)
	if limiter != nil {
		submit = limiter.Middleware(submit)
	}
	mux.Handle("POST /api/contact", submit)

	if adminToken != "" {
		requireAdmin := auth.RequireAdminToken(adminToken)
		mux.Handle("GET /api/admin/contacts", requireAdmin(http.HandlerFunc(contactHandler.AdminList)))
		mux.Handle("GET /api/admin/contacts/{id}", requireAdmin(http.HandlerFunc(contactHandler.AdminGet)))
	}
	return mux
}
