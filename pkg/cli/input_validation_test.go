package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain symbol", "SPY", false},
		{"command injection", "SPY; rm -rf /", true},
		{"chained command", "SPY && curl x", true},
		{"path traversal", "../../../etc/passwd", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.input)
			if tt.wantErr {
				assert.EqualError(t, err, "potentially malicious input detected")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSymbols(t *testing.T) {
	symbols, err := ParseSymbols([]string{"spy", " QQQ ", "BRK.B", "SPY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ", "BRK.B"}, symbols)

	_, err = ParseSymbols([]string{"SPY", "1ABC"})
	assert.Error(t, err)

	_, err = ParseSymbol("")
	assert.Error(t, err)
}

func TestParseOrderArgs(t *testing.T) {
	args, err := ParseOrderArgs([]string{"aapl", "buy", "10"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", args.Symbol)
	assert.Equal(t, "BUY", args.Action)
	assert.True(t, decimal.NewFromInt(10).Equal(args.Quantity))

	for _, bad := range [][]string{
		{"AAPL", "BUY"},
		{"AAPL", "HOLD", "1"},
		{"AAPL", "SELL", "zero"},
		{"AAPL", "SELL", "0"},
		{"AAPL", "SELL", "-3"},
		{"AAPL;ls", "SELL", "1"},
	} {
		_, err := ParseOrderArgs(bad)
		assert.Error(t, err, "args %v", bad)
	}
}
