package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ibkr_gateway/internal/bootstrap"
	"ibkr_gateway/internal/core"
	"ibkr_gateway/internal/gateway"
	"ibkr_gateway/internal/mock"
	"ibkr_gateway/internal/transport/wsbridge"

	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the App built from them
type rootOptions struct {
	configPath     string
	mock           bool
	connectTimeout time.Duration

	loadApp func(path string) (*bootstrap.App, error)
	app     *bootstrap.App
}

// Execute runs the command line with signal-aware ctx
func Execute(ctx context.Context) error {
	opts := &rootOptions{loadApp: bootstrap.NewApp}
	defer opts.close()
	return newRootCmd(opts).ExecuteContext(ctx)
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "gatewayctl",
		Short:        "Request/response client for a TWS or IB Gateway session",
		Long:         "gatewayctl connects to a TWS or IB Gateway session through the websocket bridge, issues one request and prints the correlated answer.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			app, err := opts.loadApp(opts.configPath)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			opts.app = app
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv(bootstrap.EnvConfigFile), "path to configuration file, built-in defaults when empty")
	flags.BoolVar(&opts.mock, "mock", false, "use the in-memory scripted gateway instead of the bridge")
	flags.DurationVar(&opts.connectTimeout, "connect-timeout", 10*time.Second, "how long to wait for the gateway connection")

	rootCmd.AddCommand(
		newVersionCmd(),
		newTimeCmd(opts),
		newAccountCmd(opts),
		newPositionsCmd(opts),
		newExecutionsCmd(opts),
		newQuoteCmd(opts),
		newOrderCmd(opts),
		newWatchCmd(opts),
		newServeMockCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) close() {
	if o.app != nil {
		o.app.Close()
	}
}

func (o *rootOptions) transport() core.IGatewayTransport {
	if o.mock {
		return mock.NewScriptedGateway()
	}
	return wsbridge.New(wsbridge.OptionsFromConfig(o.app.Cfg.Bridge), o.app.Logger)
}

// connect opens a client and waits until the gateway confirms the session
func (o *rootOptions) connect(ctx context.Context) (*gateway.Client, error) {
	client := gateway.NewClient(gateway.NewConfig(o.app.Cfg), o.transport(), o.app.Logger)

	connectCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.WaitConnected(connectCtx); err != nil {
		_ = client.Disconnect()
		return nil, fmt.Errorf("wait for gateway: %w", err)
	}
	return client, nil
}

// withClient runs fn against a connected client and disconnects afterwards
func (o *rootOptions) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *gateway.Client) error) error {
	client, err := o.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect() }()

	return fn(cmd.Context(), client)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gatewayctl %s (built %s)\n", version, buildTime)
			return err
		},
	}
}
