package bootstrap

import (
	"ibkr_gateway/pkg/logging"
)

// InitLogger builds the application logger from the system section
func InitLogger(cfg *Config) (*logging.ZapLogger, error) {
	return logging.NewZapLogger(cfg.System.LogLevel)
}
