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

	"github.com/google/uuid"
)

// RuleAuditSink is the Agent-facing entry point into this package: it
// generates a fresh idempotency key per recorded rule application and
// forwards to whichever Sink was configured. Agents that never attach one
// skip auditing entirely at no cost.
type RuleAuditSink struct {
	sink Sink
}

// NewRuleAuditSink wraps sink for use from an Agent's rule-execution path.
func NewRuleAuditSink(sink Sink) *RuleAuditSink {
	return &RuleAuditSink{sink: sink}
}

// RecordRuleApplication audits one rule's outcome under a freshly
// generated CommitID. Unlike a caller-supplied idempotency key, a fresh
// UUID per call means retries of the same logical rule application are
// intentionally NOT deduplicated here — Core.ExecuteHousekeepingRules
// already guarantees each RuleID only applies once, so the audit log is a
// record of applications, not a dedup boundary.
func (a *RuleAuditSink) RecordRuleApplication(ctx context.Context, ruleKey string, statusCode int64) error {
	entry := Entry{
		RuleKey:    ruleKey,
		StatusCode: statusCode,
		CommitID:   uuid.NewString(),
	}
	return a.sink.RecordBatch(ctx, []Entry{entry})
}
