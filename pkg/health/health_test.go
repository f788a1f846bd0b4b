// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyCheck(name string) CheckFunc {
	return func(ctx context.Context) CheckResult {
		return CheckResult{Name: name, Status: StatusHealthy, Message: "ok"}
	}
}

func TestNewChecker(t *testing.T) {
	checker := NewChecker()
	require.NotNil(t, checker)
	assert.False(t, checker.IsStarted())
	assert.True(t, checker.IsHealthy(context.Background()), "no checks registered should be healthy")
}

func TestLive(t *testing.T) {
	checker := NewChecker()
	result := checker.Live(context.Background())

	assert.Equal(t, "liveness", result.Name)
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestReadyWithNoChecks(t *testing.T) {
	checker := NewChecker()
	results := checker.Ready(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, "default", results[0].Name)
	assert.Equal(t, StatusHealthy, results[0].Status)
}

func TestReadyRunsRegisteredChecks(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("user_store", healthyCheck("user_store"))
	checker.RegisterCheck("challenge_store", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded, Message: "at capacity"}
	})

	results := checker.Ready(context.Background())
	require.Len(t, results, 2)

	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, StatusHealthy, byName["user_store"].Status)
	// Name is filled in when the check leaves it empty
	assert.Equal(t, StatusDegraded, byName["challenge_store"].Status)
}

func TestRegisterCheckReplaces(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("store", func(ctx context.Context) CheckResult {
		return CheckResult{Name: "store", Status: StatusUnhealthy}
	})
	checker.RegisterCheck("store", healthyCheck("store"))

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusHealthy, results[0].Status)
}

func TestRegisterCheckIgnoresNil(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("nil_check", nil)

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "default", results[0].Name)
}

func TestStartup(t *testing.T) {
	checker := NewChecker()

	result := checker.Startup(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)

	checker.MarkStarted()
	assert.True(t, checker.IsStarted())

	result = checker.Startup(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestIsHealthy(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("ok", healthyCheck("ok"))
	assert.True(t, checker.IsHealthy(context.Background()))

	checker.RegisterCheck("bad", func(ctx context.Context) CheckResult {
		return CheckResult{Name: "bad", Status: StatusUnhealthy, Error: "store unavailable"}
	})
	assert.False(t, checker.IsHealthy(context.Background()))
}

func TestUptime(t *testing.T) {
	checker := NewChecker()
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, checker.Uptime(), 10*time.Millisecond)
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		results  []CheckResult
		expected Status
	}{
		{
			name:     "empty",
			results:  nil,
			expected: StatusHealthy,
		},
		{
			name: "all healthy",
			results: []CheckResult{
				{Status: StatusHealthy},
				{Status: StatusHealthy},
			},
			expected: StatusHealthy,
		},
		{
			name: "one degraded",
			results: []CheckResult{
				{Status: StatusHealthy},
				{Status: StatusDegraded},
			},
			expected: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			results: []CheckResult{
				{Status: StatusDegraded},
				{Status: StatusUnhealthy},
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateStatus(tt.results))
		})
	}
}
