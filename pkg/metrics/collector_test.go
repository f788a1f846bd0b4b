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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollector_InvokesCallbacks(t *testing.T) {
	collector := NewCollector(context.Background(), 10*time.Millisecond)
	defer collector.Stop()

	var calls atomic.Int64
	collector.OnCollect(func() { calls.Add(1) })

	go collector.Start()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestCollector_StopHalts(t *testing.T) {
	collector := NewCollector(context.Background(), 5*time.Millisecond)

	var calls atomic.Int64
	collector.OnCollect(func() { calls.Add(1) })

	done := make(chan struct{})
	go func() {
		collector.Start()
		close(done)
	}()

	collector.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestCollector_ParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	collector := NewCollector(ctx, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		collector.Start()
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not honor parent context")
	}
}

func TestCollector_NilCallbackIgnored(t *testing.T) {
	collector := NewCollector(context.Background(), time.Minute)
	defer collector.Stop()

	collector.OnCollect(nil)
	collector.collect()
}
