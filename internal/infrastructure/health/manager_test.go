package health

import (
	"fmt"
	"testing"

	"ibkr_gateway/pkg/logging"

	"github.com/stretchr/testify/assert"
)

func TestHealthManager_Aggregation(t *testing.T) {
	hm := NewHealthManager(nil)

	// Empty manager is healthy
	assert.True(t, hm.IsHealthy())

	hm.Register("gateway", func() error { return nil })
	assert.True(t, hm.IsHealthy())

	hm.Register("watcher", func() error { return fmt.Errorf("stalled") })
	assert.False(t, hm.IsHealthy())
	assert.Equal(t, []string{"watcher"}, hm.Failing())

	status := hm.GetStatus()
	assert.Equal(t, "Healthy", status["gateway"])
	assert.Equal(t, "Unhealthy: stalled", status["watcher"])
}

func TestHealthManager_ReplaceCheck(t *testing.T) {
	hm := NewHealthManager(logging.NewNopLogger())

	hm.Register("gateway", func() error { return fmt.Errorf("not connected") })
	assert.False(t, hm.IsHealthy())

	hm.Register("gateway", func() error { return nil })
	assert.True(t, hm.IsHealthy())
}
