// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known gateway ports
const (
	PaperTradingPort = 7497
	LiveTradingPort  = 7496
)

// Gateway modes
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Config represents the complete configuration structure
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Account    AccountConfig    `yaml:"account"`
	Orders     OrdersConfig     `yaml:"orders"`
	System     SystemConfig     `yaml:"system"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Watch      WatchConfig      `yaml:"watch"`
}

// GatewayConfig selects the gateway process to talk to
type GatewayConfig struct {
	Host               string `yaml:"host"`
	Mode               string `yaml:"mode"`      // paper or live; selects the well-known port
	Port               int    `yaml:"port"`      // Optional explicit port, overrides mode
	ClientID           int64  `yaml:"client_id"` // 0 picks a random id in [1, 1000]
	FailOnGatewayError bool   `yaml:"fail_on_gateway_error"`
}

// BridgeConfig configures the websocket bridge transport
type BridgeConfig struct {
	URL                string  `yaml:"url"`
	HandshakeTimeoutMs int     `yaml:"handshake_timeout_ms"`
	WriteTimeoutMs     int     `yaml:"write_timeout_ms"`
	PingIntervalMs     int     `yaml:"ping_interval_ms"`
	PongWaitMs         int     `yaml:"pong_wait_ms"`
	MessagesPerSecond  float64 `yaml:"messages_per_second"`
	Burst              int     `yaml:"burst"`
}

// TimeoutConfig holds per-request deadlines in milliseconds. Zero on
// order_id_ms or current_time_ms waits without a deadline.
type TimeoutConfig struct {
	MarketDataMs     int `yaml:"market_data_ms"`
	AccountSummaryMs int `yaml:"account_summary_ms"`
	PositionsMs      int `yaml:"positions_ms"`
	ExecutionsMs     int `yaml:"executions_ms"`
	OrderIDMs        int `yaml:"order_id_ms"`
	CurrentTimeMs    int `yaml:"current_time_ms"`
}

// MarketDataConfig contains market data request settings
type MarketDataConfig struct {
	Type int `yaml:"type"` // 1 realtime, 2 frozen, 3 delayed, 4 delayed frozen
}

// AccountConfig contains account summary request settings
type AccountConfig struct {
	Group string `yaml:"group"`
	Tags  string `yaml:"tags"`
}

// OrdersConfig rate limits order placement
type OrdersConfig struct {
	RateLimit float64 `yaml:"rate_limit"` // orders per second
	Burst     int     `yaml:"burst"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	MetricsPort   int    `yaml:"metrics_port"`
	ExportTraces  bool   `yaml:"export_traces"`
}

// WatchConfig configures the periodic quote watcher
type WatchConfig struct {
	Symbols     []string `yaml:"symbols"`
	IntervalSec int      `yaml:"interval_sec"`
	PoolSize    int      `yaml:"pool_size"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable
// expansion. Keys missing from the file keep their DefaultConfig values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	for _, validate := range []func() error{
		c.validateGatewayConfig,
		c.validateBridgeConfig,
		c.validateTimeoutConfig,
		c.validateMarketDataConfig,
		c.validateOrdersConfig,
		c.validateSystemConfig,
		c.validateWatchConfig,
	} {
		if err := validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateGatewayConfig() error {
	if c.Gateway.Host == "" {
		return ValidationError{
			Field:   "gateway.host",
			Message: "gateway host is required",
		}
	}

	if c.Gateway.Port == 0 && !contains([]string{ModePaper, ModeLive}, strings.ToLower(c.Gateway.Mode)) {
		return ValidationError{
			Field:   "gateway.mode",
			Value:   c.Gateway.Mode,
			Message: fmt.Sprintf("must be one of: %s, %s (or set gateway.port)", ModePaper, ModeLive),
		}
	}

	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		return ValidationError{
			Field:   "gateway.port",
			Value:   c.Gateway.Port,
			Message: "port must be between 1 and 65535",
		}
	}

	if c.Gateway.ClientID < 0 {
		return ValidationError{
			Field:   "gateway.client_id",
			Value:   c.Gateway.ClientID,
			Message: "client id must not be negative",
		}
	}

	return nil
}

func (c *Config) validateBridgeConfig() error {
	if c.Bridge.URL == "" {
		return ValidationError{
			Field:   "bridge.url",
			Message: "bridge url is required",
		}
	}

	if !strings.HasPrefix(c.Bridge.URL, "ws://") && !strings.HasPrefix(c.Bridge.URL, "wss://") {
		return ValidationError{
			Field:   "bridge.url",
			Value:   c.Bridge.URL,
			Message: "bridge url must use ws:// or wss://",
		}
	}

	if c.Bridge.MessagesPerSecond <= 0 {
		return ValidationError{
			Field:   "bridge.messages_per_second",
			Value:   c.Bridge.MessagesPerSecond,
			Message: "message rate must be positive",
		}
	}

	return nil
}

func (c *Config) validateTimeoutConfig() error {
	required := map[string]int{
		"timeouts.market_data_ms":     c.Timeouts.MarketDataMs,
		"timeouts.account_summary_ms": c.Timeouts.AccountSummaryMs,
		"timeouts.positions_ms":       c.Timeouts.PositionsMs,
		"timeouts.executions_ms":      c.Timeouts.ExecutionsMs,
	}
	for field, value := range required {
		if value <= 0 {
			return ValidationError{
				Field:   field,
				Value:   value,
				Message: "deadline must be positive",
			}
		}
	}

	if c.Timeouts.OrderIDMs < 0 {
		return ValidationError{
			Field:   "timeouts.order_id_ms",
			Value:   c.Timeouts.OrderIDMs,
			Message: "deadline must not be negative (0 waits without deadline)",
		}
	}
	if c.Timeouts.CurrentTimeMs < 0 {
		return ValidationError{
			Field:   "timeouts.current_time_ms",
			Value:   c.Timeouts.CurrentTimeMs,
			Message: "deadline must not be negative (0 waits without deadline)",
		}
	}

	return nil
}

func (c *Config) validateMarketDataConfig() error {
	if c.MarketData.Type < 1 || c.MarketData.Type > 4 {
		return ValidationError{
			Field:   "market_data.type",
			Value:   c.MarketData.Type,
			Message: "must be one of: 1 (realtime), 2 (frozen), 3 (delayed), 4 (delayed frozen)",
		}
	}
	return nil
}

func (c *Config) validateOrdersConfig() error {
	if c.Orders.RateLimit <= 0 {
		return ValidationError{
			Field:   "orders.rate_limit",
			Value:   c.Orders.RateLimit,
			Message: "rate limit must be positive",
		}
	}
	if c.Orders.Burst < 1 {
		return ValidationError{
			Field:   "orders.burst",
			Value:   c.Orders.Burst,
			Message: "burst must be at least 1",
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateWatchConfig() error {
	if c.Watch.IntervalSec < 1 {
		return ValidationError{
			Field:   "watch.interval_sec",
			Value:   c.Watch.IntervalSec,
			Message: "interval must be at least 1 second",
		}
	}
	return nil
}

// ResolvedPort returns the explicit port, or the well-known port of the mode
func (g GatewayConfig) ResolvedPort() int {
	if g.Port != 0 {
		return g.Port
	}
	if strings.ToLower(g.Mode) == ModeLive {
		return LiveTradingPort
	}
	return PaperTradingPort
}

// Durations

func (t TimeoutConfig) MarketData() time.Duration     { return ms(t.MarketDataMs) }
func (t TimeoutConfig) AccountSummary() time.Duration { return ms(t.AccountSummaryMs) }
func (t TimeoutConfig) Positions() time.Duration      { return ms(t.PositionsMs) }
func (t TimeoutConfig) Executions() time.Duration     { return ms(t.ExecutionsMs) }
func (t TimeoutConfig) OrderID() time.Duration        { return ms(t.OrderIDMs) }
func (t TimeoutConfig) CurrentTime() time.Duration    { return ms(t.CurrentTimeMs) }

func (b BridgeConfig) HandshakeTimeout() time.Duration { return ms(b.HandshakeTimeoutMs) }
func (b BridgeConfig) WriteTimeout() time.Duration     { return ms(b.WriteTimeoutMs) }
func (b BridgeConfig) PingInterval() time.Duration     { return ms(b.PingIntervalMs) }
func (b BridgeConfig) PongWait() time.Duration         { return ms(b.PongWaitMs) }

func (w WatchConfig) Interval() time.Duration { return time.Duration(w.IntervalSec) * time.Second }

// String returns a YAML representation of the configuration
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns the default configuration: a local paper-trading
// gateway behind a local bridge
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:               "127.0.0.1",
			Mode:               ModePaper,
			FailOnGatewayError: true,
		},
		Bridge: BridgeConfig{
			URL:                "ws://127.0.0.1:8765/ws",
			HandshakeTimeoutMs: 10000,
			WriteTimeoutMs:     5000,
			PingIntervalMs:     30000,
			PongWaitMs:         60000,
			MessagesPerSecond:  50,
			Burst:              50,
		},
		Timeouts: TimeoutConfig{
			MarketDataMs:     5000,
			AccountSummaryMs: 2000,
			PositionsMs:      2000,
			ExecutionsMs:     2000,
			OrderIDMs:        5000,
			CurrentTimeMs:    5000,
		},
		MarketData: MarketDataConfig{
			Type: 3,
		},
		Account: AccountConfig{
			Group: "All",
			Tags:  "NetLiquidation,TotalCashValue,UnrealizedPnL,RealizedPnL",
		},
		Orders: OrdersConfig{
			RateLimit: 5,
			Burst:     5,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "ibkr_gateway",
			EnableMetrics: false,
			MetricsPort:   9464,
		},
		Watch: WatchConfig{
			Symbols:     []string{"SPY", "QQQ"},
			IntervalSec: 10,
			PoolSize:    4,
		},
	}
}
