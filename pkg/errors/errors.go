package apperrors

import (
	"errors"
	"fmt"
)

// Standardized Gateway Errors
var (
	ErrNotConnected          = errors.New("not connected to gateway")
	ErrConnectionLost        = fmt.Errorf("connection lost: %w", ErrNotConnected)
	ErrMarketDataTimeout     = errors.New("timeout waiting for market data")
	ErrOrderIDTimeout        = errors.New("timeout waiting for next valid order id")
	ErrCurrentTimeTimeout    = errors.New("timeout waiting for gateway time")
	ErrInvalidOrderParameter = errors.New("invalid order parameter")
	ErrInvalidSymbol         = errors.New("invalid symbol")
	ErrUnknownEvent          = errors.New("unknown gateway event")
)

// GatewayError is an error reported by the gateway through its error event
type GatewayError struct {
	RequestID int64
	Code      int
	Message   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d (req %d): %s", e.Code, e.RequestID, e.Message)
}

// Informational reports whether the code is a notice rather than a failure:
// the 2100-2199 connectivity/farm status range and 10167 (delayed market data
// shown instead of live).
func (e *GatewayError) Informational() bool {
	return IsInformationalCode(e.Code)
}

// IsInformationalCode reports whether a gateway error code is a notice
func IsInformationalCode(code int) bool {
	if code >= 2100 && code < 2200 {
		return true
	}
	return code == 10167
}
