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

// Package differentiation turns a selected subset of a request's
// classifiers into a fixed-width 32-bit token usable as a hash-table key.
// It is the hashing fabric behind both channel selection (Core) and
// object selection (Channel) — the same canonical-string-then-hash idiom,
// parameterized by which classifiers participate.
package differentiation

import (
	"strconv"
	"sync"

	"github.com/twmb/murmur3"
)

// HashFamily selects which member of the MurmurHash3 family produces the
// token. Both variants are seeded identically so the same canonical string
// always maps to the same token within one family.
type HashFamily int

const (
	// HashX86_32 uses murmur3.Sum32, matching MurmurHash3_x86_32.
	HashX86_32 HashFamily = iota
	// HashX64_128 uses murmur3.Sum128 and keeps the low 32 bits of the
	// first output word, matching the spec's "128-bit variants fill a
	// 4-word output of which the low 32 bits are the token".
	HashX64_128
)

const noDiff = "no_diff"

// Builder composes selected classifiers into a canonical string and hashes
// it into a token. It is safe for concurrent use: set_classifiers/bind take
// a write lock, token() takes a read lock, matching the spec's "typical
// implementation is a write lock around rebinding".
type Builder struct {
	mu sync.RWMutex

	useWorkflow bool
	useType     bool
	useCtx      bool
	family      HashFamily

	bound      bool
	formatFunc func(workflow, opType, opCtx uint32) string
}

// NewBuilder constructs a Builder using the given hash family. Callers must
// call SetClassifiers and Bind before calling Token.
func NewBuilder(family HashFamily) *Builder {
	return &Builder{family: family}
}

// SetClassifiers records which of the three classifier inputs participate
// in the canonical string. Disabled classifiers are skipped entirely, not
// defaulted to zero.
func (b *Builder) SetClassifiers(useWorkflow, useType, useCtx bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.useWorkflow = useWorkflow
	b.useType = useType
	b.useCtx = useCtx
	b.bound = false
}

// Bind materializes a dispatch choice for the formatter given the currently
// recorded classifier selection. It must be called after SetClassifiers and
// before Token; calling it again after a SetClassifiers change rebinds.
func (b *Builder) Bind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	useWorkflow, useType, useCtx := b.useWorkflow, b.useType, b.useCtx

	switch {
	case !useWorkflow && !useType && !useCtx:
		b.formatFunc = func(_, _, _ uint32) string { return noDiff }
	case useWorkflow && !useType && !useCtx:
		b.formatFunc = func(w, _, _ uint32) string { return strconv.FormatUint(uint64(w), 10) }
	case !useWorkflow && useType && !useCtx:
		b.formatFunc = func(_, t, _ uint32) string { return strconv.FormatUint(uint64(t), 10) }
	case !useWorkflow && !useType && useCtx:
		b.formatFunc = func(_, _, c uint32) string { return strconv.FormatUint(uint64(c), 10) }
	case useWorkflow && useType && !useCtx:
		b.formatFunc = func(w, t, _ uint32) string {
			return strconv.FormatUint(uint64(w), 10) + "|" + strconv.FormatUint(uint64(t), 10)
		}
	case useWorkflow && !useType && useCtx:
		b.formatFunc = func(w, _, c uint32) string {
			return strconv.FormatUint(uint64(w), 10) + "|" + strconv.FormatUint(uint64(c), 10)
		}
	case !useWorkflow && useType && useCtx:
		b.formatFunc = func(_, t, c uint32) string {
			return strconv.FormatUint(uint64(t), 10) + "|" + strconv.FormatUint(uint64(c), 10)
		}
	default: // all three
		b.formatFunc = func(w, t, c uint32) string {
			return strconv.FormatUint(uint64(w), 10) + "|" +
				strconv.FormatUint(uint64(t), 10) + "|" +
				strconv.FormatUint(uint64(c), 10)
		}
	}
	b.bound = true
}

// Token runs the bound formatter over (workflow, opType, opCtx) and hashes
// the resulting canonical string using the configured MurmurHash3 family.
// Bind must have been called at least once; Token panics otherwise, mirroring
// the source's contract that a builder is unusable before binding.
func (b *Builder) Token(workflow, opType, opCtx uint32) uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.bound {
		panic("differentiation: Token called before Bind")
	}
	s := b.formatFunc(workflow, opType, opCtx)
	return b.hash(s)
}

func (b *Builder) hash(s string) uint32 {
	switch b.family {
	case HashX64_128:
		hi, _ := murmur3.Sum128([]byte(s))
		return uint32(hi)
	default:
		return murmur3.Sum32([]byte(s))
	}
}
