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

package differentiation

import "errors"

// legacyChannel is the two-way split the token-and-accumulator pipeline
// this builder descends from used before two-level channel/object
// differentiation replaced it: every operation was forced into either a
// serialized Vector lane or, when a narrow set of eligibility checks
// passed, a parallelizable Scalar lane.
type legacyChannel int

const (
	legacyChannelScalar legacyChannel = iota
	legacyChannelVector
)

// legacyOp mirrors the classifier input of that earlier pipeline: a
// domain-agnostic operation plus the rule flags its projection rules
// keyed off of.
type legacyOp struct {
	key    string
	amount int64

	isBackdated           bool
	isCrossKey            bool
	changesPolicy         bool
	needsExternalDecision bool
	isGlobal              bool
	isSingleKey           bool
	isConservativeDelta   bool
}

var errLegacyOpMissingKey = errors.New("differentiation: legacy op missing key")

// classifyLegacyOp reproduces the old V/S projection exactly: any of the
// five forcing flags, or a failed S-eligibility check, routes to Vector;
// only an operation that is single-key, carries a conservative delta, and
// trips none of the forcing flags routes to Scalar. It exists solely so a
// regression test can confirm that today's two-level channel/object
// token scheme — channel keyed on workflow, object keyed on operation
// type and context — reproduces every routing decision the old
// classifier made, one canonical-string Builder in place of a bespoke
// switch.
func classifyLegacyOp(op legacyOp) (legacyChannel, error) {
	if op.key == "" {
		return legacyChannelVector, errLegacyOpMissingKey
	}
	if op.isBackdated || op.isCrossKey || op.changesPolicy || op.needsExternalDecision || op.isGlobal {
		return legacyChannelVector, nil
	}
	if !op.isSingleKey || !op.isConservativeDelta {
		return legacyChannelVector, nil
	}
	return legacyChannelScalar, nil
}
