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

package core

import "sync"

// HousekeepingOperation is the closed set of structural operations a
// housekeeping rule can request against the Core's channel/object
// topology. The integer values are local to this package; they are not
// the wire protocol's operation codes (wire.OperationType).
type HousekeepingOperation int32

const (
	OpCreateChannel HousekeepingOperation = iota
	OpCreateObject
	OpRemoveChannel
	OpRemoveObject
)

// HousekeepingRule describes one structural change to apply against a
// Core: create or remove a channel, or create or remove an object inside
// an existing channel. ObjectKind is only meaningful for OpCreateObject.
type HousekeepingRule struct {
	RuleID     uint64
	Operation  HousekeepingOperation
	ChannelID  uint32
	ObjectID   uint32
	ObjectKind int32 // enforcement.ObjectKind, kept untyped here to avoid an import cycle
	Properties map[string]float64
}

// EnforcementRule describes a runtime reconfiguration of an already
// existing enforcement object: new token-bucket capacity, refill period,
// or any other object-specific tunable.
type EnforcementRule struct {
	RuleID     uint64
	ChannelID  uint32
	ObjectID   uint32
	Properties map[string]float64
}

// RuleTable accumulates housekeeping rules as they are employed and
// exposes them for batched execution. It mirrors the pattern of
// accumulate-then-flush used elsewhere in this stage: rules are cheap to
// employ and expensive (structural locks) to execute, so execution is
// batched rather than applied rule-by-rule as they arrive.
type RuleTable struct {
	mu      sync.Mutex
	nextID  uint64
	pending []HousekeepingRule
	applied []HousekeepingRule
}

// NewRuleTable builds an empty rule table.
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Employ appends rule to the pending queue, assigning it a RuleID if it
// does not already have a non-zero one, and returns the assigned id.
func (t *RuleTable) Employ(rule HousekeepingRule) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rule.RuleID == 0 {
		t.nextID++
		rule.RuleID = t.nextID
	} else if rule.RuleID > t.nextID {
		t.nextID = rule.RuleID
	}
	t.pending = append(t.pending, rule)
	return rule.RuleID
}

// DrainPending removes and returns every rule currently queued, in the
// order they were employed, moving them into the applied history.
func (t *RuleTable) DrainPending() []HousekeepingRule {
	t.mu.Lock()
	defer t.mu.Unlock()
	drained := t.pending
	t.pending = nil
	t.applied = append(t.applied, drained...)
	return drained
}

// PendingCount reports how many rules are queued but not yet executed.
func (t *RuleTable) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// AppliedCount reports how many rules have been executed over the table's
// lifetime.
func (t *RuleTable) AppliedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.applied)
}
