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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// flushInterval bounds how long a recorded batch can sit in the buffered
// writer before an unrelated call forces it to disk, the same
// visibility/durability tradeoff the teacher's JSONL sinks made.
const flushInterval = 100 * time.Millisecond

// FileSink is a buffered, append-only JSONL audit log: every RecordBatch
// call encodes its entries as one JSON object per line. It is safe for
// concurrent use and, unlike MockSink, survives process restarts.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewFileSink opens (or creates) the JSONL log at path in append mode.
// Call Close when the sink is no longer needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: opening file sink %q: %w", path, err)
	}
	return &FileSink{
		f:         f,
		w:         bufio.NewWriterSize(f, 1<<20),
		path:      path,
		lastFlush: time.Now(),
	}, nil
}

// RecordBatch appends entries to the log as JSON lines, one per entry. An
// empty batch is a no-op, matching the other sinks' idempotent-retry
// contract for replayed, zero-length calls.
func (s *FileSink) RecordBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	for _, e := range entries {
		if e.CommitID == "" {
			return fmt.Errorf("audit: entry for %q is missing a CommitID", e.RuleKey)
		}
		if err := enc.Encode(&e); err != nil {
			// best effort: flush whatever is buffered and retry once
			_ = s.w.Flush()
			if err := enc.Encode(&e); err != nil {
				return fmt.Errorf("audit: encoding entry for %q: %w", e.RuleKey, err)
			}
		}
	}
	if time.Since(s.lastFlush) > flushInterval {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("audit: flushing file sink: %w", err)
		}
		s.lastFlush = time.Now()
	}
	return nil
}

// Flush forces any buffered entries to disk immediately.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file. A FileSink must not be
// used after Close returns.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadAllEntries reads every entry previously recorded at path, for
// replay or inspection. Lines that fail to decode are skipped rather than
// aborting the read, mirroring the teacher's best-effort log replay.
func ReadAllEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, scanner.Err()
}
