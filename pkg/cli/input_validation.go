// Package cli validates and parses command line arguments of gatewayctl
package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errMaliciousInput = errors.New("potentially malicious input detected")

	// exchange tickers: letters, digits, and the class separators . and /
	symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9./]{0,11}$`)
)

// ValidateInput checks for command injection and path traversal patterns
func ValidateInput(input string) error {
	if strings.Contains(input, ";") || strings.Contains(input, "&&") || strings.Contains(input, "||") {
		return errMaliciousInput
	}
	if strings.Contains(input, "../") || strings.Contains(input, "..\\") {
		return errMaliciousInput
	}
	return nil
}

// ParseSymbol normalizes a ticker symbol
func ParseSymbol(input string) (string, error) {
	if err := ValidateInput(input); err != nil {
		return "", err
	}
	symbol := strings.ToUpper(strings.TrimSpace(input))
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("invalid symbol %q", input)
	}
	return symbol, nil
}

// ParseSymbols normalizes a list of ticker symbols, dropping duplicates
func ParseSymbols(inputs []string) ([]string, error) {
	seen := make(map[string]bool, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		symbol, err := ParseSymbol(in)
		if err != nil {
			return nil, err
		}
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	return out, nil
}

// OrderArgs are the parsed arguments of the order command
type OrderArgs struct {
	Symbol   string
	Action   string
	Quantity decimal.Decimal
}

// ParseOrderArgs parses SYMBOL BUY|SELL QTY
func ParseOrderArgs(args []string) (OrderArgs, error) {
	if len(args) != 3 {
		return OrderArgs{}, fmt.Errorf("expected SYMBOL BUY|SELL QTY, got %d arguments", len(args))
	}

	symbol, err := ParseSymbol(args[0])
	if err != nil {
		return OrderArgs{}, err
	}

	action := strings.ToUpper(strings.TrimSpace(args[1]))
	if action != "BUY" && action != "SELL" {
		return OrderArgs{}, fmt.Errorf("side must be BUY or SELL, got %q", args[1])
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(args[2]))
	if err != nil {
		return OrderArgs{}, fmt.Errorf("invalid quantity %q: %w", args[2], err)
	}
	if !qty.IsPositive() {
		return OrderArgs{}, fmt.Errorf("quantity must be positive, got %s", qty)
	}

	return OrderArgs{Symbol: symbol, Action: action, Quantity: qty}, nil
}
