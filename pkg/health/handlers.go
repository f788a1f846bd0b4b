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
	"encoding/json"
	"net/http"
)

// Response is the JSON body returned by the probe handlers.
type Response struct {
	Status Status        `json:"status"`
	Checks []CheckResult `json:"checks,omitempty"`
}

// LiveHandler returns an HTTP handler for the liveness probe.
// Always 200 while the process is responding.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Live(r.Context())
		writeResponse(w, http.StatusOK, Response{
			Status: result.Status,
			Checks: []CheckResult{result},
		})
	}
}

// ReadyHandler returns an HTTP handler for the readiness probe.
// Returns 503 when any registered check is not healthy.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := c.Ready(r.Context())
		overall := AggregateStatus(results)

		status := http.StatusOK
		if overall == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, Response{
			Status: overall,
			Checks: results,
		})
	}
}

// StartupHandler returns an HTTP handler for the startup probe.
// Returns 503 until MarkStarted has been called.
func (c *Checker) StartupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Startup(r.Context())

		status := http.StatusOK
		if result.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, Response{
			Status: result.Status,
			Checks: []CheckResult{result},
		})
	}
}

func writeResponse(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
