package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/storefront-admin/internal/app"
	"github.com/odyssey-erp/storefront-admin/internal/auth"
	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/banners"
	"github.com/odyssey-erp/storefront-admin/internal/listview"
	"github.com/odyssey-erp/storefront-admin/internal/observability"
	"github.com/odyssey-erp/storefront-admin/internal/platform/cache"
	"github.com/odyssey-erp/storefront-admin/internal/platform/httpx"
	"github.com/odyssey-erp/storefront-admin/internal/rbac"
	"github.com/odyssey-erp/storefront-admin/internal/reload"
	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "storefront_admin_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	client := backend.NewClient(cfg.BackendURL, backend.Options{
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Burst:   cfg.BackendBurst,
	})

	rbacService := rbac.NewService(client, cfg.PermissionRefresh)
	bus := reload.NewBus(redisClient, cfg.ReloadChannel, logger)
	registry := listview.NewRegistry(cfg.ListIdleTTL, metrics, logger)

	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, OnSignOut: registry.DropSession}

	listDeps := listview.Deps{
		Logger:    logger,
		Templates: templates,
		CSRF:      csrfManager,
		Registry:  registry,
		Auth:      rbacService,
		Reload:    bus,
		Publisher: bus,
		Observer:  metrics,
		Options: listview.Options{
			SearchDebounce: cfg.SearchDebounce,
			DialogTimeout:  cfg.DialogTimeout,
		},
	}
	bannerForm := banners.NewFormHandler(logger, templates, csrfManager, banners.BackendStore(client), bus)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    auth.NewHandler(logger, client, rbacService, registry, templates, sessionManager, csrfManager),
		AccountHandler: rbac.NewAccountHandler(logger, rbacService, templates, csrfManager),
		RBACMiddleware: rbacMiddleware,
		Screens:        app.Screens(listDeps, client, bannerForm),
		Metrics:        metrics,
		Probes: []httpx.Probe{
			{Name: "redis", Check: func(ctx context.Context) error {
				return cache.Ping(ctx, redisClient, 0)
			}},
			{Name: "reload", Check: func(ctx context.Context) error {
				select {
				case <-bus.Ready():
					return nil
				default:
					return errors.New("reload bus not subscribed")
				}
			}},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return bus.Run(gctx)
	})
	group.Go(func() error {
		return registry.Run(gctx)
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("storefront admin stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
