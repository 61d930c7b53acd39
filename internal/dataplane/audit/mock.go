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

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSink prints recorded entries to stdout and keeps simple lifetime
// counters; useful for trying an Agent's audit wiring without standing up
// Redis, Kafka, or Postgres.
type MockSink struct {
	mu           sync.Mutex
	totalEntries int64
	totalBatches int64
}

// NewMockSink builds a MockSink.
func NewMockSink() *MockSink { return &MockSink{} }

func (s *MockSink) RecordBatch(_ context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	fmt.Printf("[%s] auditing batch of %d rule applications\n", time.Now().Format(time.RFC3339), len(entries))
	for _, e := range entries {
		fmt.Printf("  - RULE: %-30s STATUS: %d COMMIT: %s\n", e.RuleKey, e.StatusCode, e.CommitID)
	}
	s.mu.Lock()
	s.totalEntries += int64(len(entries))
	s.totalBatches++
	s.mu.Unlock()
	return nil
}

// Totals reports the sink's lifetime entry and batch counts.
func (s *MockSink) Totals() (entries, batches int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalEntries, s.totalBatches
}
