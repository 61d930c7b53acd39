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

import "testing"

// TestClassifyLegacyOpMirrorsOriginal reproduces the old classifier's
// decision table, one case per forcing rule, confirming the adapted
// version still routes identically to the pipeline it was copied from.
func TestClassifyLegacyOpMirrorsOriginal(t *testing.T) {
	cases := []struct {
		name string
		op   legacyOp
		want legacyChannel
	}{
		{"eligible scalar", legacyOp{key: "k", isSingleKey: true, isConservativeDelta: true}, legacyChannelScalar},
		{"backdated forces vector", legacyOp{key: "k", isBackdated: true, isSingleKey: true, isConservativeDelta: true}, legacyChannelVector},
		{"cross key forces vector", legacyOp{key: "k", isCrossKey: true, isSingleKey: true, isConservativeDelta: true}, legacyChannelVector},
		{"policy change forces vector", legacyOp{key: "k", changesPolicy: true, isSingleKey: true, isConservativeDelta: true}, legacyChannelVector},
		{"needs external decision forces vector", legacyOp{key: "k", needsExternalDecision: true, isSingleKey: true, isConservativeDelta: true}, legacyChannelVector},
		{"global forces vector", legacyOp{key: "k", isGlobal: true, isSingleKey: true, isConservativeDelta: true}, legacyChannelVector},
		{"non single key ineligible", legacyOp{key: "k", isSingleKey: false, isConservativeDelta: true}, legacyChannelVector},
		{"non conservative delta ineligible", legacyOp{key: "k", isSingleKey: true, isConservativeDelta: false}, legacyChannelVector},
	}
	for _, tc := range cases {
		got, err := classifyLegacyOp(tc.op)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyLegacyOpMissingKey(t *testing.T) {
	ch, err := classifyLegacyOp(legacyOp{isSingleKey: true, isConservativeDelta: true})
	if err != errLegacyOpMissingKey {
		t.Fatalf("expected errLegacyOpMissingKey, got %v", err)
	}
	if ch != legacyChannelVector {
		t.Fatalf("a rejected op must still report Vector, got %v", ch)
	}
}

// TestTwoLevelDifferentiationSubsumesLegacySplit proves the Builder this
// package exports reproduces the old pipeline's routing guarantee without
// a bespoke classifier: operations that the legacy classifier placed in
// different channels (Scalar vs Vector) land on different object tokens
// within the same channel, while operations the legacy classifier placed
// in the same channel collide onto the same object token whenever they
// also share a workflow and operation context — exactly the granularity
// the old Footprint/Scope pair offered, expressed instead as one
// canonical-string-then-hash Builder.
func TestTwoLevelDifferentiationSubsumesLegacySplit(t *testing.T) {
	const workflowID = uint32(42)

	scalarEligible := legacyOp{key: "account-7", isSingleKey: true, isConservativeDelta: true}
	vectorForced := legacyOp{key: "account-7", isCrossKey: true, isSingleKey: true, isConservativeDelta: true}

	scalarChannel, err := classifyLegacyOp(scalarEligible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vectorChannel, err := classifyLegacyOp(vectorForced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scalarChannel == vectorChannel {
		t.Fatalf("fixture ops must classify to different legacy channels")
	}

	// The modern scheme folds the legacy channel decision into the
	// object-level opCtx classifier: channel membership still comes from
	// workflow, but which object within the channel now comes from the
	// same legacy-channel bit the old Footprint.Scope carried.
	b := NewBuilder(HashX86_32)
	b.SetClassifiers(true, false, true)
	b.Bind()

	objA := b.Token(workflowID, 0, uint32(scalarChannel))
	objB := b.Token(workflowID, 0, uint32(vectorChannel))
	if objA == objB {
		t.Fatalf("scalar- and vector-routed ops must land on distinct object tokens")
	}

	// Two operations the legacy classifier both placed in Scalar, sharing
	// a workflow and legacy-channel bit, must collide onto one object
	// token: this is the old Scalar lane's single shared accumulator,
	// reproduced as one enforcement object.
	otherScalarEligible := legacyOp{key: "account-9", isSingleKey: true, isConservativeDelta: true}
	otherScalarChannel, err := classifyLegacyOp(otherScalarEligible)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if otherScalarChannel != scalarChannel {
		t.Fatalf("fixture op must also classify Scalar")
	}
	objC := b.Token(workflowID, 0, uint32(otherScalarChannel))
	if objC != objA {
		t.Fatalf("two Scalar-routed ops under the same workflow must share one object token")
	}
}
