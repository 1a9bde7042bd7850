// Package health aggregates component health checks for the /healthz endpoint
package health

import (
	"sort"
	"sync"

	"ibkr_gateway/internal/core"
)

// HealthManager aggregates health status from different components
type HealthManager struct {
	logger core.ILogger
	mu     sync.RWMutex
	checks map[string]func() error
}

// NewHealthManager creates a new health manager
func NewHealthManager(logger core.ILogger) *HealthManager {
	hm := &HealthManager{
		checks: make(map[string]func() error),
	}
	if logger != nil {
		hm.logger = logger.WithField("component", "health_manager")
	}
	return hm
}

// Register adds a health check for a component, replacing any previous one
func (hm *HealthManager) Register(component string, check func() error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[component] = check
}

// GetStatus returns the current status of all registered components
func (hm *HealthManager) GetStatus() map[string]string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]string, len(hm.checks))
	for component, check := range hm.checks {
		if err := check(); err != nil {
			status[component] = "Unhealthy: " + err.Error()
		} else {
			status[component] = "Healthy"
		}
	}
	return status
}

// IsHealthy returns true if every registered component is healthy
func (hm *HealthManager) IsHealthy() bool {
	return len(hm.Failing()) == 0
}

// Failing returns the sorted names of unhealthy components
func (hm *HealthManager) Failing() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	var failing []string
	for component, check := range hm.checks {
		if err := check(); err != nil {
			failing = append(failing, component)
			if hm.logger != nil {
				hm.logger.Debug("Health check failed", "check", component, "error", err)
			}
		}
	}
	sort.Strings(failing)
	return failing
}
