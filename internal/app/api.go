package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	v1 "github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/viewer/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/viewer/internal/raster"
	"github.com/jaennil/guide_helper/backend/viewer/internal/search"
	"github.com/jaennil/guide_helper/backend/viewer/internal/settings"
	"github.com/jaennil/guide_helper/backend/viewer/internal/usecase"
	"github.com/jaennil/guide_helper/backend/viewer/internal/viewport"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/config"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/telemetry"
)

func Run(cfg *config.Config) {
	root := logger.NewZapLogger(cfg.Logger)
	defer func() {
		_ = root.Sync()
	}()
	l := root.With("service", cfg.Telemetry.ServiceName, "environment", cfg.Telemetry.Environment)

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	// Initialize OpenTelemetry if enabled
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	// Initialize the settings repository
	settingsStore, closeStore, err := newStore(cfg.Settings, l)
	if err != nil {
		l.Fatal("failed to initialize settings store", "backend", cfg.Settings.Backend, "error", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			l.Error("failed to close settings store", "error", err)
		}
	}()
	viewerSettings := settings.New(settingsStore, l.Named("settings"))
	l.Info("settings store initialized", "backend", cfg.Settings.Backend)

	// Initialize the raster cache and viewport
	fetcher := raster.NewHTTPFetcher(cfg.Tiles.FetchTimeout, cfg.Tiles.UserAgent)
	cache := raster.NewCache(fetcher, viewerSettings, l.Named("raster"))

	engine, err := viewport.New(cache, viewerSettings, l.Named("viewport"), viewport.Config{
		Width:         cfg.Viewer.Width,
		Height:        cfg.Viewer.Height,
		BackgroundURL: cfg.Tiles.BackgroundURL,
		ForegroundURL: cfg.Tiles.ForegroundURL,
	})
	if err != nil {
		l.Fatal("failed to initialize viewport", "error", err)
	}

	searcher := search.NewSearcher(cfg.Search.URL, cfg.Search.UserAgent, cfg.Search.Timeout, l.Named("search"))

	// Initialize the use case
	viewer := usecase.NewViewerUseCase(engine, cache, searcher, viewerSettings, l.Named("viewer"), usecase.Options{
		FPS:           cfg.Viewer.FPS,
		At:            cfg.Viewer.At,
		PublicBaseURL: cfg.Viewer.PublicBaseURL,
	})

	viewerCtx, stopViewer := context.WithCancel(ctx)
	viewerDone := make(chan struct{})
	go func() {
		defer close(viewerDone)
		if err := viewer.Run(viewerCtx); err != nil {
			l.Error("viewer failed", "error", err)
		}
	}()

	// Initialize the HTTP handler
	validate := validator.New()
	h := handler.NewHandler(validate, viewer)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName)

	httpServer := http_server.NewServer(l, cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http server shutdown completed")
	}

	stopViewer()
	select {
	case <-viewerDone:
	case <-shutdownCtx.Done():
		l.Warn("timeout waiting for viewer to stop")
	}

	l.Info("application shutdown completed")
}
