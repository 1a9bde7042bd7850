package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ibkr_gateway/internal/bootstrap"
	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/mock"
	"ibkr_gateway/internal/transport/wsbridge"

	"github.com/spf13/cobra"
)

func newServeMockCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Serve a scripted paper-trading gateway on the bridge protocol",
		Long:  "serve-mock runs a bridge endpoint at /ws backed by a scripted gateway, so every other command can be tried end to end without TWS.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.app.Logger

			mux := http.NewServeMux()
			mux.Handle("/ws", wsbridge.NewServer(func() core.IGatewayTransport {
				return mock.NewScriptedGateway()
			}, logger))

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bridge listen: %w", err)
			}
			logger.Info("Serving scripted gateway", "addr", lis.Addr().String(), "path", "/ws")

			return opts.app.RunContext(cmd.Context(), bootstrap.RunnerFunc(func(ctx context.Context) error {
				return serveUntilDone(ctx, &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}, lis)
			}))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "listen address")
	return cmd
}

func serveUntilDone(ctx context.Context, srv *http.Server, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
