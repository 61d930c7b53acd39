// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package enforcement

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"paioctl/internal/dataplane/core"
)

// TokenBucketPush is a token bucket refilled by a dedicated background
// goroutine on a fixed ticker, rather than lazily on the consumer's call
// path. Consumers therefore never pay a refill-catch-up cost, at the
// expense of one goroutine per bucket for the bucket's lifetime.
type TokenBucketPush struct {
	id uint32

	mu       sync.Mutex
	capacity float64
	tokens   float64

	refillPeriod time.Duration
	stopped      atomic.Bool
	stopCh       chan struct{}
	wg           sync.WaitGroup

	// refilled is closed and replaced every time the refill goroutine tops
	// the bucket up, broadcasting to any Enforce call parked waiting for
	// tokens. It stands in for the source's condition-variable signal.
	refilled chan struct{}

	stats *statsRing
}

// NewTokenBucketPush builds a push-refill token bucket and starts its
// refill goroutine immediately.
func NewTokenBucketPush(token uint32, capacity float64, refillPeriod time.Duration, collectStats bool) *TokenBucketPush {
	if refillPeriod <= 0 {
		refillPeriod = defaultRefillPeriod
	}
	tb := &TokenBucketPush{
		id:           token,
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		stopCh:       make(chan struct{}),
		refilled:     make(chan struct{}),
		stats:        newStatsRing(collectStats, defaultSlidingWindow),
	}
	tb.wg.Add(1)
	go tb.refillLoop()
	return tb
}

func (tb *TokenBucketPush) ID() uint32 { return tb.id }

func (tb *TokenBucketPush) refillLoop() {
	defer tb.wg.Done()

	ticker := time.NewTicker(tb.currentPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-tb.stopCh:
			return
		case <-ticker.C:
			tb.mu.Lock()
			tb.tokens = tb.capacity
			period := tb.refillPeriod
			woken := tb.refilled
			tb.refilled = make(chan struct{})
			tb.mu.Unlock()
			close(woken)
			ticker.Reset(period)
		}
	}
}

func (tb *TokenBucketPush) currentPeriod() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.refillPeriod
}

// Close stops the refill goroutine and waits for it to exit. A bucket must
// not be used after Close returns.
func (tb *TokenBucketPush) Close() {
	if tb.stopped.CompareAndSwap(false, true) {
		close(tb.stopCh)
	}
	tb.wg.Wait()
}

// Enforce consumes basic_io_cost(ticket) = ticket.Payload tokens, chunked to
// at most capacity per attempt. A chunk that finds the bucket short parks on
// the refill goroutine's broadcast channel, falling back to a refillPeriod
// timeout, and a Close mid-wait returns StatusEnforced at once. Short of
// a Close, it never rejects the request.
func (tb *TokenBucketPush) Enforce(ticket *core.Ticket) core.Status {
	need := float64(ticket.Payload)
	if need <= 0 {
		need = 1
	}

	remaining := need
	for remaining > 0 {
		tb.mu.Lock()
		chunk := remaining
		if tb.capacity > 0 && chunk > tb.capacity {
			chunk = tb.capacity
		}

		for tb.tokens < chunk {
			tb.stats.recordReject(uint64(chunk))
			wake := tb.refilled
			timeout := tb.refillPeriod
			tb.mu.Unlock()

			select {
			case <-wake:
			case <-time.After(timeout):
			case <-tb.stopCh:
				return core.StatusEnforced
			}

			tb.mu.Lock()
		}

		tb.tokens -= chunk
		tb.mu.Unlock()

		tb.stats.recordConsume(uint64(chunk))
		remaining -= chunk
	}

	return core.StatusOK
}

// Configure updates capacity and/or refill_period from a housekeeping rule.
// Recognized keys: "capacity" (set directly), "rate" (a throughput value
// normalized against the bucket's current refill period, capacity ← rate ×
// refill-period), and "refill_period_ms". A changed refill_period_ms takes
// effect on the refill goroutine's next tick, not instantaneously.
func (tb *TokenBucketPush) Configure(args map[string]float64) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if v, ok := args["capacity"]; ok {
		if v <= 0 {
			return fmt.Errorf("enforcement: capacity must be positive, got %v", v)
		}
		tb.capacity = v
	}
	if v, ok := args["rate"]; ok {
		if v <= 0 {
			return fmt.Errorf("enforcement: rate must be positive, got %v", v)
		}
		tb.capacity = v * tb.refillPeriod.Seconds()
	}
	if v, ok := args["refill_period_ms"]; ok {
		if v <= 0 {
			return fmt.Errorf("enforcement: refill_period_ms must be positive, got %v", v)
		}
		tb.refillPeriod = time.Duration(v) * time.Millisecond
	}
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	return nil
}

func (tb *TokenBucketPush) CollectStats() ObjectStats {
	return ObjectStats{Kind: KindTokenBucketPush, TokenBucketStats: tb.stats.snapshot()}
}
