package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"ibkr_gateway/internal/config"
)

// Config is an alias for the project's main configuration struct
type Config = config.Config

// Environment overrides applied after the file is loaded
const (
	EnvConfigFile  = "CONFIG_FILE"
	EnvGatewayMode = "GATEWAY_MODE"
	EnvBridgeURL   = "BRIDGE_URL"
	EnvLogLevel    = "LOG_LEVEL"
)

// LoadConfig loads the file at path, or the defaults when path is empty,
// applies environment overrides and runs the pre-flight checks
func LoadConfig(path string) (*Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := checkPreFlight(cfg); err != nil {
		return nil, fmt.Errorf("pre-flight checks failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if mode := os.Getenv(EnvGatewayMode); mode != "" {
		cfg.Gateway.Mode = strings.ToLower(mode)
	}
	if url := os.Getenv(EnvBridgeURL); url != "" {
		cfg.Bridge.URL = url
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.System.LogLevel = strings.ToUpper(level)
	}
}

// checkPreFlight performs checks beyond schema validation
func checkPreFlight(cfg *Config) error {
	// an explicit paper port under live mode means the file contradicts itself
	if strings.ToLower(cfg.Gateway.Mode) == config.ModeLive && cfg.Gateway.Port == config.PaperTradingPort {
		return fmt.Errorf("gateway.mode is %q but gateway.port is the paper trading port %d", config.ModeLive, config.PaperTradingPort)
	}
	if cfg.Watch.PoolSize < 1 {
		return fmt.Errorf("watch.pool_size must be at least 1, got %d", cfg.Watch.PoolSize)
	}
	return nil
}
