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

package stats

import "paioctl/pkg/vsa"

// SoftBudget is an optional acceleration backend for a Counter's windowed
// byte tally. It repurposes the Vector-Scalar Accumulator pattern: the
// stable Scalar is the window's byte allowance, and the volatile Vector
// tracks bytes consumed against it since the window opened. Available()
// then reads as "bytes remaining in this window's soft SLA budget" rather
// than the accumulator's original "rows not yet flushed to a store"
// meaning — the arithmetic is identical, only the interpretation changes.
//
// Using a VSA here is purely an optimization: a fast-path Channel can call
// TryConsume on the lock-light accumulator before routing a ticket to its
// (possibly blocking) enforcement object, instead of taking the Counter's
// own mutex just to decide whether the window's byte allowance still has
// room. A Channel built without a SoftBudget behaves identically, just
// without the extra admission gate.
type SoftBudget struct {
	acc *vsa.VSA
}

// NewSoftBudget builds a SoftBudget allowing up to allowance bytes of
// consumption before TryConsume starts refusing.
func NewSoftBudget(allowance int64) *SoftBudget {
	return &SoftBudget{acc: vsa.New(allowance)}
}

// TryConsume attempts to charge n bytes against the remaining allowance,
// returning false without charging anything if that would overdraw it.
func (b *SoftBudget) TryConsume(n int64) bool {
	return b.acc.TryConsume(n)
}

// Remaining reports the bytes left in the current window's allowance.
func (b *SoftBudget) Remaining() int64 {
	return b.acc.Available()
}

// Reopen starts a fresh window with a new allowance, discarding whatever
// vector was accumulated in the previous window. stage.Channel's
// TickStatistics calls this right after its Counter's Tick.
func (b *SoftBudget) Reopen(allowance int64) {
	b.acc = vsa.New(allowance)
}
