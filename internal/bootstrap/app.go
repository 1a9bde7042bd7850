// Package bootstrap wires configuration, logging and telemetry into an App
// and runs its components until a termination signal
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ibkr_gateway/internal/core"
	"ibkr_gateway/pkg/logging"
	"ibkr_gateway/pkg/telemetry"

	"golang.org/x/sync/errgroup"
)

// App represents the application context and holds core dependencies
type App struct {
	Cfg       *Config
	Logger    core.ILogger
	Telemetry *telemetry.Telemetry

	zap *logging.ZapLogger
}

// NewApp loads configuration and initializes logging and telemetry
func NewApp(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig bootstraps an App from an already loaded configuration
func NewAppWithConfig(cfg *Config) (*App, error) {
	tel, err := telemetry.Setup(telemetry.Options{
		ServiceName:  cfg.Telemetry.ServiceName,
		ExportTraces: cfg.Telemetry.ExportTraces,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// created after telemetry so the otelzap core binds to the real provider
	logger, err := InitLogger(cfg)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, fmt.Errorf("logger: %w", err)
	}

	return &App{
		Cfg:       cfg,
		Logger:    logger,
		Telemetry: tel,
		zap:       logger,
	}, nil
}

// Runner is an interface for components that can be run and stopped gracefully
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Run starts every runner and waits until all return, one fails, or a
// termination signal arrives
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx, runners...)
}

// RunContext is Run with an explicit parent context
func (a *App) RunContext(ctx context.Context, runners ...Runner) error {
	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application", "runners", len(runners))
	for _, r := range runners {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error("Application stopped with error", "error", err)
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}

// Close flushes logs and telemetry
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			a.Logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
}
