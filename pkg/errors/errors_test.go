package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLostIsNotConnected(t *testing.T) {
	assert.True(t, errors.Is(ErrConnectionLost, ErrNotConnected))
	assert.False(t, errors.Is(ErrNotConnected, ErrConnectionLost))
}

func TestGatewayError(t *testing.T) {
	tests := []struct {
		code          int
		informational bool
	}{
		{code: 200, informational: false},
		{code: 354, informational: false},
		{code: 2104, informational: true},
		{code: 2158, informational: true},
		{code: 2200, informational: false},
		{code: 10167, informational: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			err := &GatewayError{RequestID: 7, Code: tt.code, Message: "msg"}
			assert.Equal(t, tt.informational, err.Informational())
		})
	}

	var wrapped error = fmt.Errorf("account summary: %w", &GatewayError{RequestID: 3, Code: 321, Message: "bad group"})
	var gwErr *GatewayError
	if assert.True(t, errors.As(wrapped, &gwErr)) {
		assert.Equal(t, int64(3), gwErr.RequestID)
		assert.Equal(t, "gateway error 321 (req 3): bad group", gwErr.Error())
	}
}
