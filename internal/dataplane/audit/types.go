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

// Package audit provides optional, idempotent persistence adapters an
// Agent can attach so every housekeeping or enforcement rule it applies
// is durably recorded, once, even under retry. It is an optional sink:
// an Agent with none attached behaves identically, just without a
// durable record of what was applied and when.
package audit

import "context"

// Entry is the adapter-facing shape of a single audited rule application.
//
//   - RuleKey identifies what was changed (e.g. "channel:7:object:42").
//   - StatusCode is the outcome recorded for the rule (a core.Status value,
//     kept untyped here so this package never needs to import core).
//   - CommitID is a globally unique idempotency key for this entry; the
//     same CommitID applied twice must be a no-op everywhere a real
//     adapter (as opposed to the logging demo adapters) is used.
//   - FencingToken is an optional monotonic token guarding against
//     out-of-order application when more than one Agent could be
//     applying rules against the same store concurrently.
type Entry struct {
	RuleKey      string
	StatusCode   int64
	CommitID     string
	FencingToken *int64
}

// Sink is the minimal API every audit adapter supports: durably record a
// batch of entries, exactly once per CommitID.
type Sink interface {
	RecordBatch(ctx context.Context, entries []Entry) error
}
