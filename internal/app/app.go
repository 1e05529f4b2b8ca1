package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foxzi/reachgate/internal/api"
	"github.com/foxzi/reachgate/internal/config"
	"github.com/foxzi/reachgate/internal/metrics"
	"github.com/foxzi/reachgate/internal/store"
)

// App is the preview server process: API, metrics listener and gauge collector
type App struct {
	config        *config.Config
	store         *store.Store
	apiServer     *api.Server
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	st, err := store.Open(cfg.Storage.Path, store.WalletSeed{
		Balance: cfg.Wallet.InitialBalance,
		Credits: cfg.Wallet.InitialCredits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	a := &App{
		config:    cfg,
		store:     st,
		apiServer: api.NewServer(st, cfg, logger.With("component", "api")),
		logger:    logger,
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
		metrics.SetGlobal(a.metrics)
		a.metricsServer = metrics.NewServer(a.metrics, metrics.ServerOptions{
			Addr:       cfg.Metrics.ListenAddr,
			Path:       cfg.Metrics.Path,
			AllowedIPs: cfg.Metrics.AllowedIPs,
		}, logger.With("component", "metrics"))
		a.collector = metrics.NewCollector(a.metrics, st, cfg.Storage.Path, cfg.Metrics.CollectInterval)
	}

	return a, nil
}

// Store returns the contact store
func (a *App) Store() *store.Store {
	return a.store
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting reachgate",
		"api_addr", a.config.Server.ListenAddr,
		"metrics_enabled", a.config.Metrics.Enabled,
		"storage", a.config.Storage.Path,
		"auth", a.config.AuthEnabled(),
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.apiServer.Shutdown(shutdownCtx)
	})

	if a.metricsServer != nil {
		a.collector.Start(gctx)
		g.Go(func() error {
			if err := a.metricsServer.Run(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		a.logger.Error("server error", "error", err)
	}

	a.shutdown()
	return err
}

func (a *App) shutdown() {
	a.logger.Info("shutting down")

	if a.collector != nil {
		a.collector.Stop()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}

	a.logger.Info("shutdown complete")
}

// Close releases resources of an app that was never run
func (a *App) Close() error {
	return a.store.Close()
}

// NewLogger creates a logger based on configuration
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
