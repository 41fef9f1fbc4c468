package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/data/docstore/sqlstore"
	fleethttp "github.com/yungbote/fleet-backend/internal/http"
	httpMW "github.com/yungbote/fleet-backend/internal/http/middleware"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    docstore.Store
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *fleethttp.Server

	closeStore   func() error
	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE, defaulting to development.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	proxies, err := httpMW.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	tracing := cfg.Tracing
	tracing.ServiceName = cfg.ServiceName
	tracing.Environment = cfg.Environment
	otelShutdown := observability.InitTracing(ctx, log, tracing)
	metrics := observability.Init(log, cfg.MetricsEnabled)

	opened, err := resolveStore(ctx, log, cfg.Store)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	store := observability.InstrumentStore(opened.store, metrics)

	reposet := wireRepos(store, log)
	serviceset := wireServices(store, log, cfg, reposet, metrics)
	handlerset := wireHandlers(log, store, serviceset)
	server := wireServer(log, cfg, handlerset, metrics, proxies)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       server,
		closeStore:   opened.close,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Server.Addr(), "store_driver", a.Cfg.Store.Driver)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		a.Log.Info("Shutting down HTTP server", "timeout", a.Cfg.ShutdownTimeout.String())
		return a.Server.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.Log.Warn("Closing document store failed", "error", err)
		}
		a.closeStore = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate prepares the configured store's schema. Only the SQL drivers have one.
func Migrate(ctx context.Context, log *logger.Logger, cfg StoreConfig) error {
	cfg.AutoMigrate = false
	opened, err := resolveStore(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = opened.close() }()

	s, ok := opened.store.(*sqlstore.Store)
	if !ok {
		log.Info("Store has no schema to migrate", "driver", cfg.Driver)
		return nil
	}
	if err := s.AutoMigrate(); err != nil {
		return &StoreBootstrapError{Code: StoreBootstrapErrorMigrateFailed, Driver: cfg.Driver, Cause: err}
	}
	log.Info("Store migrated", "driver", cfg.Driver)
	return nil
}
