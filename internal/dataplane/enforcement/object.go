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

// Package enforcement holds the enforcement objects that live inside a
// Channel: the token-bucket rate limiters (pull and push refill variants)
// and the no-op pass-through object, plus their statistics.
package enforcement

import "paioctl/internal/dataplane/core"

// Object is the common surface every enforcement mechanism implements.
// A Channel dispatches a Ticket to exactly one Object, selected by the
// object-level differentiation token.
type Object interface {
	// ID returns the object token this instance is registered under.
	ID() uint32

	// Enforce applies the object's policy to the ticket's payload and
	// returns the outcome. It must not block past whatever backoff the
	// object's own policy calls for.
	Enforce(ticket *core.Ticket) core.Status

	// Configure updates the object's tunable parameters from a housekeeping
	// rule payload. The concrete shape of args is object-type specific.
	Configure(args map[string]float64) error

	// CollectStats returns a type-erased snapshot of the object's internal
	// counters for the control plane's detailed-statistics operation.
	CollectStats() ObjectStats
}

// ObjectKind tags the concrete Object variant, used when a detailed
// statistics snapshot needs to report which kind produced it.
type ObjectKind int32

const (
	KindNoop ObjectKind = iota
	KindTokenBucketPull
	KindTokenBucketPush
)

// ObjectStats is a type-erased snapshot returned by CollectStats. Only the
// fields relevant to Kind are meaningful; the rest are zero.
type ObjectStats struct {
	Kind ObjectKind
	TokenBucketStats
}

// NoopObject passes every ticket through unmodified. It exists so a Channel
// can be constructed and driven end-to-end before any real policy is
// attached, and as the default object for workflows that should never be
// throttled.
type NoopObject struct {
	id uint32
}

// NewNoopObject builds a NoopObject registered under token.
func NewNoopObject(token uint32) *NoopObject {
	return &NoopObject{id: token}
}

func (o *NoopObject) ID() uint32 { return o.id }

func (o *NoopObject) Enforce(_ *core.Ticket) core.Status { return core.StatusOK }

func (o *NoopObject) Configure(_ map[string]float64) error { return nil }

func (o *NoopObject) CollectStats() ObjectStats {
	return ObjectStats{Kind: KindNoop}
}
