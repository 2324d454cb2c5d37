/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apiclient

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerManager hands out one gobreaker.CircuitBreaker per app identity
// (namespace/name), so a flapping downstream app doesn't cause the
// reconciler to hammer it with health checks on every reconcile.
type BreakerManager struct {
	settings gobreaker.Settings
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerManager creates a manager. base is used as the template for
// every per-app breaker's Settings (Name is overridden per key).
func NewBreakerManager(base gobreaker.Settings) *BreakerManager {
	return &BreakerManager{
		settings: base,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// DefaultBreakerSettings returns reasonable defaults: trip after 3
// consecutive failures, half-open after 30s, allow 2 trial requests.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
}

func (m *BreakerManager) forKey(key string) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[key]; ok {
		return cb
	}
	settings := m.settings
	settings.Name = key
	cb := gobreaker.NewCircuitBreaker(settings)
	m.breakers[key] = cb
	return cb
}

// CheckHealth runs check.IsHealthy through the breaker registered for key,
// short-circuiting to an error without calling check when the breaker is
// open.
func (m *BreakerManager) CheckHealth(ctx context.Context, key string, check HealthCheck) (bool, error) {
	cb := m.forKey(key)
	result, err := cb.Execute(func() (interface{}, error) {
		return check.IsHealthy(ctx)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
