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

package metrics

import (
	"context"
	"sync"
	"time"
)

// Collector periodically refreshes the uptime gauge and any registered
// callbacks (store entry counts and similar point-in-time readings).
type Collector struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	started  time.Time

	mu        sync.Mutex
	callbacks []func()
}

// NewCollector creates a collector that refreshes gauges at the specified
// interval.
//
// Example:
//
//	collector := metrics.NewCollector(ctx, 30*time.Second)
//	collector.OnCollect(func() {
//	    metrics.SetStoreEntries("users", float64(users.Count()))
//	})
//	go collector.Start()
//	defer collector.Stop()
func NewCollector(ctx context.Context, interval time.Duration) *Collector {
	collectorCtx, cancel := context.WithCancel(ctx)
	return &Collector{
		ctx:      collectorCtx,
		cancel:   cancel,
		interval: interval,
		started:  time.Now(),
	}
}

// OnCollect registers a callback invoked on every collection cycle.
func (c *Collector) OnCollect(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// Start begins collecting at the configured interval. This method blocks and
// should typically be run in a goroutine. It returns when Stop is called or
// the parent context is cancelled.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Collect initial readings immediately
	c.collect()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Stop halts the collector.
func (c *Collector) Stop() {
	c.cancel()
}

func (c *Collector) collect() {
	if !IsEnabled() {
		return
	}

	ServerUptime.Set(time.Since(c.started).Seconds())

	c.mu.Lock()
	callbacks := make([]func(), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
