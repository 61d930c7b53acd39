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

// Package core holds the data model shared by every request that flows
// through the stage (contexts, tickets, results, statuses) and the
// housekeeping and enforcement rule types and rule table. The Channel and
// Core types that act on them live in package stage.
package core

// Status is the closed set of outcome kinds surfaced on every public
// operation (spec §7). It is distinct from a Go error: a Status travels on
// the wire and is also attached to a Result so the caller can make routing
// decisions without inspecting an error chain.
type Status int32

const (
	StatusOK Status = iota
	StatusError
	StatusNotSupported
	StatusEnforced
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "Error"
	case StatusNotSupported:
		return "NotSupported"
	case StatusEnforced:
		return "Enforced"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Context is the immutable, per-request classifier tuple attached by the
// application before a request reaches Core.EnforceRequest. All four
// classifier fields must be legal values of the active ContextType, or the
// NoOp sentinel (see contexttype.go).
type Context struct {
	WorkflowID       uint32
	OperationType    OperationType
	OperationContext OperationContext
	OperationSize    uint64
	TotalOperations  int32
	CType            ContextType
}

// Ticket is generated per request inside a Channel. TicketID is
// channel-local and monotonically increasing; it is unique for the
// channel's lifetime. A Ticket is immutable once built and is consumed by
// exactly one enforcement path (fast path or the worker pool).
type Ticket struct {
	TicketID         uint64
	TotalOperations  int32
	Payload          int64 // bytes or operations, per caller convention
	OperationType    OperationType
	OperationContext OperationContext
	Content          []byte // optional content buffer
}

// Result carries the post-enforcement outcome back to the caller. Content
// is only populated when the enforcing object transforms the payload (no
// built-in variant does today; the field exists for extension objects).
type Result struct {
	Status   Status
	TicketID uint64
	Content  []byte
}
