package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"ibkr_gateway/internal/bootstrap"
	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/gateway"
	"ibkr_gateway/internal/infrastructure/health"
	"ibkr_gateway/internal/infrastructure/metrics"
	"ibkr_gateway/pkg/cli"
	"ibkr_gateway/pkg/concurrency"
	apperrors "ibkr_gateway/pkg/errors"

	"github.com/spf13/cobra"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		poolSize int
	)

	cmd := &cobra.Command{
		Use:   "watch [SYMBOL...]",
		Short: "Snapshot prices periodically while serving /metrics and /healthz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.app.Cfg
			if len(args) == 0 {
				args = cfg.Watch.Symbols
			}
			symbols, err := cli.ParseSymbols(args)
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.Watch.Interval()
			}
			if poolSize <= 0 {
				poolSize = cfg.Watch.PoolSize
			}

			client, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect() }()

			logger := opts.app.Logger
			hm := health.NewHealthManager(logger)
			hm.Register("gateway", func() error {
				if !client.IsConnected() {
					return apperrors.ErrNotConnected
				}
				return nil
			})

			w := &watcher{
				client:   client,
				symbols:  symbols,
				interval: interval,
				out:      cmd.OutOrStdout(),
				logger:   logger.WithField("component", "watcher"),
				pool: concurrency.NewWorkerPool(concurrency.PoolConfig{
					Name:        "QuoteWatchPool",
					MaxWorkers:  poolSize,
					MaxCapacity: len(symbols),
				}, logger),
			}

			runners := []bootstrap.Runner{w}
			if cfg.Telemetry.EnableMetrics {
				runners = append(runners, metrics.NewServer(cfg.Telemetry.MetricsPort, hm, logger))
			}
			return opts.app.RunContext(cmd.Context(), runners...)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between snapshot rounds (watch.interval_sec when zero)")
	cmd.Flags().IntVar(&poolSize, "pool-size", 0, "concurrent snapshots per round (watch.pool_size when zero)")
	return cmd
}

// watcher takes one market data snapshot per symbol every interval. It stops
// when its context ends or the gateway connection is lost.
type watcher struct {
	client   *gateway.Client
	pool     *concurrency.WorkerPool
	symbols  []string
	interval time.Duration
	logger   core.ILogger

	outMu sync.Mutex
	out   io.Writer
}

func (w *watcher) Run(ctx context.Context) error {
	defer w.pool.Stop()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Watching quotes", "symbols", w.symbols, "interval", w.interval)
	for {
		w.round(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !w.client.IsConnected() {
			return apperrors.ErrConnectionLost
		}
	}
}

func (w *watcher) round(ctx context.Context) {
	tasks := make([]func(), 0, len(w.symbols))
	for _, symbol := range w.symbols {
		tasks = append(tasks, func() {
			price, err := w.client.MarketDataSnapshot(ctx, symbol)
			if err != nil {
				w.logger.Warn("Snapshot failed", "symbol", symbol, "error", err)
				return
			}

			w.outMu.Lock()
			defer w.outMu.Unlock()
			fmt.Fprintf(w.out, "%s %-6s %s\n", time.Now().Format(time.TimeOnly), symbol, price)
		})
	}
	w.pool.RunBatch(tasks)
}
