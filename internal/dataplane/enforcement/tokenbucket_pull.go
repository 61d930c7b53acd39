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
	"time"

	"paioctl/internal/dataplane/core"
)

// defaultRefillPeriod mirrors the 1-second default refill period of the
// original token bucket.
const defaultRefillPeriod = time.Second

// TokenBucketPull is a lazily-refilled token bucket: the refill calculation
// only runs on the consuming goroutine's own call path, the moment it
// notices the current period has elapsed. There is no background goroutine,
// so an idle bucket costs nothing between requests.
type TokenBucketPull struct {
	id uint32

	mu sync.Mutex

	capacity     float64
	tokens       float64
	refillPeriod time.Duration
	nextRefillAt time.Time

	stats *statsRing
}

// NewTokenBucketPull builds a pull-refill token bucket registered under
// token, starting full, refilling capacity tokens every refillPeriod.
func NewTokenBucketPull(token uint32, capacity float64, refillPeriod time.Duration, collectStats bool) *TokenBucketPull {
	if refillPeriod <= 0 {
		refillPeriod = defaultRefillPeriod
	}
	return &TokenBucketPull{
		id:           token,
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		nextRefillAt: time.Now().Add(refillPeriod),
		stats:        newStatsRing(collectStats, defaultSlidingWindow),
	}
}

func (tb *TokenBucketPull) ID() uint32 { return tb.id }

// refillLocked brings the bucket up to date with however many refill
// periods have elapsed since nextRefillAt, capping at capacity. Must be
// called with mu held.
func (tb *TokenBucketPull) refillLocked(now time.Time) {
	if now.Before(tb.nextRefillAt) {
		return
	}
	elapsed := now.Sub(tb.nextRefillAt)
	periods := 1 + int64(elapsed/tb.refillPeriod)
	tb.tokens += float64(periods) * tb.capacity
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.nextRefillAt = tb.nextRefillAt.Add(time.Duration(periods) * tb.refillPeriod)
}

// minSleepFraction is the 0.01 (1%) floor the source applies to the sleep
// between short-retry attempts, so a bucket with a long refill period still
// polls at a reasonable cadence instead of sleeping a full period at a time.
const minSleepFraction = 0.01

// Enforce consumes basic_io_cost(ticket) = ticket.Payload tokens, splitting
// the request into chunks no larger than capacity. A chunk that finds the
// bucket short triggers a refill attempt and, if still short, a bounded
// sleep before retrying; the bucket never rejects a request outright.
func (tb *TokenBucketPull) Enforce(ticket *core.Ticket) core.Status {
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

		now := time.Now()
		tb.refillLocked(now)
		for tb.tokens < chunk {
			tb.stats.recordReject(uint64(chunk))

			remainingRefill := time.Until(tb.nextRefillAt)
			sleepFor := remainingRefill
			if floor := time.Duration(minSleepFraction * float64(tb.refillPeriod)); sleepFor < floor {
				sleepFor = floor
			}
			tb.mu.Unlock()

			time.Sleep(sleepFor)

			tb.mu.Lock()
			tb.refillLocked(time.Now())
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
// refill-period), and "refill_period_ms".
func (tb *TokenBucketPull) Configure(args map[string]float64) error {
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

func (tb *TokenBucketPull) CollectStats() ObjectStats {
	return ObjectStats{Kind: KindTokenBucketPull, TokenBucketStats: tb.stats.snapshot()}
}
