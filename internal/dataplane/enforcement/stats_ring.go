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
	"sync"
	"time"
)

// defaultSlidingWindow mirrors the 5-second sliding-window default of the
// token bucket's statistics collection.
const defaultSlidingWindow = 5 * time.Second

// statsRingBuckets is the number of fixed-width slots the sliding window is
// divided into. Each record or snapshot first advances the write head by the
// number of whole bucket durations elapsed since the last rotation, zeroing
// each bucket it moves onto, giving an approximate moving sum without a
// timestamp per sample.
const statsRingBuckets = 5

// TokenBucketStats is the statistics snapshot produced by a token bucket,
// combining lifetime totals with an approximate sliding-window view.
type TokenBucketStats struct {
	ConsumedTotal     uint64
	RejectedTotal     uint64
	ConsumedInWindow  uint64
	RejectedInWindow  uint64
	WindowSize        time.Duration
}

// statsRing accumulates consume/reject events into a rotating set of
// buckets covering defaultSlidingWindow in aggregate, and keeps running
// lifetime totals alongside. Collection can be disabled entirely, matching
// the source's m_collect_statistics atomic bool gate.
type statsRing struct {
	mu sync.Mutex

	enabled bool
	window  time.Duration

	buckets    [statsRingBuckets]struct{ consumed, rejected uint64 }
	head       int
	lastRotate time.Time

	consumedTotal uint64
	rejectedTotal uint64
}

func newStatsRing(enabled bool, window time.Duration) *statsRing {
	if window <= 0 {
		window = defaultSlidingWindow
	}
	return &statsRing{
		enabled:    enabled,
		window:     window,
		lastRotate: time.Now(),
	}
}

func (r *statsRing) bucketPeriod() time.Duration {
	return r.window / statsRingBuckets
}

// rotate advances the ring's write head to account for elapsed time,
// zeroing any buckets that have fully aged out. Must be called with mu held.
func (r *statsRing) rotate(now time.Time) {
	period := r.bucketPeriod()
	if period <= 0 {
		return
	}
	elapsed := now.Sub(r.lastRotate)
	steps := int(elapsed / period)
	if steps <= 0 {
		return
	}
	if steps > statsRingBuckets {
		steps = statsRingBuckets
	}
	for i := 0; i < steps; i++ {
		r.head = (r.head + 1) % statsRingBuckets
		r.buckets[r.head].consumed = 0
		r.buckets[r.head].rejected = 0
	}
	r.lastRotate = now
}

func (r *statsRing) recordConsume(n uint64) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate(time.Now())
	r.buckets[r.head].consumed += n
	r.consumedTotal += n
}

func (r *statsRing) recordReject(n uint64) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate(time.Now())
	r.buckets[r.head].rejected += n
	r.rejectedTotal += n
}

func (r *statsRing) snapshot() TokenBucketStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate(time.Now())

	var consumedWindow, rejectedWindow uint64
	for _, b := range r.buckets {
		consumedWindow += b.consumed
		rejectedWindow += b.rejected
	}
	return TokenBucketStats{
		ConsumedTotal:    r.consumedTotal,
		RejectedTotal:    r.rejectedTotal,
		ConsumedInWindow: consumedWindow,
		RejectedInWindow: rejectedWindow,
		WindowSize:       r.window,
	}
}
