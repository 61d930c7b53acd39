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

package stage

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
)

// ErrDuplicateChannel is returned when a housekeeping rule tries to create
// a channel under a token already registered in this Core.
var ErrDuplicateChannel = errors.New("stage: channel token already registered")

// ErrNoSuchChannel is returned when a request or rule's channel token does
// not match any channel registered in this Core.
var ErrNoSuchChannel = errors.New("stage: no channel bound to this token")

// ErrUnknownObjectKind is returned when a create-object housekeeping rule
// names an object kind the Core does not know how to build.
var ErrUnknownObjectKind = errors.New("stage: unrecognized enforcement object kind")

// ObjectFactory builds a concrete EnforcementObject from a housekeeping
// rule's kind tag and property bag. Core is deliberately ignorant of the
// concrete enforcement package; the facade that constructs a Core supplies
// this so Core never needs to import enforcement and risk a cycle back
// through queue/core.
type ObjectFactory func(token uint32, kind int32, properties map[string]float64) (EnforcementObject, error)

// CoreOptions configures a new Core and every Channel it creates via
// housekeeping rules.
type CoreOptions struct {
	ContextType       core.ContextType
	ChannelTokenFamily differentiation.HashFamily
	ObjectTokenFamily  differentiation.HashFamily
	DefaultQueueCapacity int
	DefaultWorkerCount   int
	DefaultFastPathOnly  bool

	// DefaultSoftBudgetBytes, if positive, gives every Channel this Core
	// creates a lock-light per-window byte budget (see
	// stats.SoftBudget) that EnforceRequest's fast path checks before
	// routing a ticket to its (possibly blocking) enforcement object.
	// Zero disables the soft budget entirely.
	DefaultSoftBudgetBytes int64

	BuildObject ObjectFactory
}

// Core is the top-level routing structure: a map of Channels keyed by the
// channel-level differentiation token, a housekeeping rule table, and the
// readiness/handshake state the control plane polls. Two locks guard
// distinct concerns, always acquired in the order channelsLock before a
// Channel's own internal lock (never the reverse), matching the
// producer/consumer lock ordering this stage's background loops rely on:
//
//   - channelsLock guards the channel map itself (insert/remove/lookup).
//   - linkersLock guards the secondary applied-rule ledger used to make
//     housekeeping rule execution idempotent under retry.
type Core struct {
	opts CoreOptions

	chanToken *differentiation.Builder

	channelsLock sync.RWMutex
	channels     map[uint32]*Channel

	linkersLock sync.Mutex
	applied     map[uint64]bool

	rules *core.RuleTable

	ready atomic.Bool

	stageName string
	stageEnv  string
}

// NewCore builds an empty Core. No channels exist until housekeeping rules
// create them.
func NewCore(opts CoreOptions) *Core {
	chanToken := differentiation.NewBuilder(opts.ChannelTokenFamily)
	chanToken.SetClassifiers(true, false, false)
	chanToken.Bind()

	return &Core{
		opts:      opts,
		chanToken: chanToken,
		channels:  make(map[uint32]*Channel),
		applied:   make(map[uint64]bool),
		rules:     core.NewRuleTable(),
	}
}

// ChannelToken computes the channel-selection token for workflowID using
// this Core's currently bound scheme. It is the first of the two levels
// of differentiation; ObjectToken on the resolved Channel is the second.
func (c *Core) ChannelToken(workflowID uint32) uint32 {
	return c.chanToken.Token(workflowID, 0, 0)
}

// SetChannelClassifiers rebinds which classifiers participate in channel
// selection.
func (c *Core) SetChannelClassifiers(useWorkflow, useType, useCtx bool) {
	c.chanToken.SetClassifiers(useWorkflow, useType, useCtx)
	c.chanToken.Bind()
}

// EmployHousekeepingRule queues rule for later execution by
// ExecuteHousekeepingRules and returns its assigned RuleID.
func (c *Core) EmployHousekeepingRule(rule core.HousekeepingRule) uint64 {
	return c.rules.Employ(rule)
}

// ExecuteHousekeepingRules drains every pending housekeeping rule and
// applies it against the channel/object topology, in the order the rules
// were employed. A rule whose RuleID was already applied (as recorded in
// the linkers ledger) is skipped, making re-execution after a retry safe.
// It returns the first error encountered, having already applied every
// rule before it.
func (c *Core) ExecuteHousekeepingRules() error {
	for _, rule := range c.rules.DrainPending() {
		c.linkersLock.Lock()
		if c.applied[rule.RuleID] {
			c.linkersLock.Unlock()
			continue
		}
		c.linkersLock.Unlock()

		if err := c.applyRule(rule); err != nil {
			return err
		}

		c.linkersLock.Lock()
		c.applied[rule.RuleID] = true
		c.linkersLock.Unlock()
	}
	return nil
}

func (c *Core) applyRule(rule core.HousekeepingRule) error {
	switch rule.Operation {
	case core.OpCreateChannel:
		return c.createChannel(rule.ChannelID)
	case core.OpRemoveChannel:
		return c.removeChannel(rule.ChannelID)
	case core.OpCreateObject:
		return c.createObject(rule)
	case core.OpRemoveObject:
		return c.removeObject(rule.ChannelID, rule.ObjectID)
	default:
		return ErrUnknownObjectKind
	}
}

func (c *Core) createChannel(token uint32) error {
	c.channelsLock.Lock()
	defer c.channelsLock.Unlock()
	if _, exists := c.channels[token]; exists {
		return ErrDuplicateChannel
	}
	c.channels[token] = NewChannel(token, ChannelOptions{
		ContextType:     c.opts.ContextType,
		ObjectTokenFamily: c.opts.ObjectTokenFamily,
		QueueCapacity:   c.opts.DefaultQueueCapacity,
		WorkerCount:     c.opts.DefaultWorkerCount,
		FastPathOnly:    c.opts.DefaultFastPathOnly,
		SoftBudgetBytes: c.opts.DefaultSoftBudgetBytes,
	})
	return nil
}

func (c *Core) removeChannel(token uint32) error {
	c.channelsLock.Lock()
	defer c.channelsLock.Unlock()
	ch, exists := c.channels[token]
	if !exists {
		return ErrNoSuchChannel
	}
	ch.Close()
	delete(c.channels, token)
	return nil
}

func (c *Core) createObject(rule core.HousekeepingRule) error {
	ch, ok := c.lookupChannel(rule.ChannelID)
	if !ok {
		return ErrNoSuchChannel
	}
	if c.opts.BuildObject == nil {
		return ErrUnknownObjectKind
	}
	obj, err := c.opts.BuildObject(rule.ObjectID, rule.ObjectKind, rule.Properties)
	if err != nil {
		return err
	}
	return ch.CreateObject(obj)
}

func (c *Core) removeObject(channelID, objectID uint32) error {
	ch, ok := c.lookupChannel(channelID)
	if !ok {
		return ErrNoSuchChannel
	}
	ch.RemoveObject(objectID)
	return nil
}

// EmployEnforcementRule applies an immediate reconfiguration to an
// existing enforcement object. Unlike housekeeping rules, enforcement
// rules are not queued: they take effect synchronously, since they never
// touch the channel map itself.
func (c *Core) EmployEnforcementRule(rule core.EnforcementRule) error {
	ch, ok := c.lookupChannel(rule.ChannelID)
	if !ok {
		return ErrNoSuchChannel
	}
	return ch.ConfigureObject(rule.ObjectID, rule.Properties)
}

func (c *Core) lookupChannel(token uint32) (*Channel, bool) {
	c.channelsLock.RLock()
	defer c.channelsLock.RUnlock()
	ch, ok := c.channels[token]
	return ch, ok
}

// EnforceRequest routes ctx to the channel its workflow resolves to and
// applies that channel's enforcement policy. ErrNoSuchChannel is reported
// as a StatusNotSupported result rather than a Go error, since an
// unresolvable channel is a normal, expected outcome on the data-plane
// hot path, not a programming error.
func (c *Core) EnforceRequest(ctx core.Context, timeout time.Duration) core.Result {
	token := c.ChannelToken(ctx.WorkflowID)
	ch, ok := c.lookupChannel(token)
	if !ok {
		return core.Result{Status: core.StatusNotSupported}
	}
	return ch.EnforceRequest(ctx, timeout)
}

// Channel exposes a registered channel by token for statistics collection
// and diagnostics.
func (c *Core) Channel(token uint32) (*Channel, bool) {
	return c.lookupChannel(token)
}

// ForEachChannel calls fn once per currently registered channel token. fn
// must not call CreateChannel/RemoveChannel back into this Core.
func (c *Core) ForEachChannel(fn func(token uint32, ch *Channel)) {
	c.channelsLock.RLock()
	defer c.channelsLock.RUnlock()
	for token, ch := range c.channels {
		fn(token, ch)
	}
}

// MarkReady flips the stage's readiness flag, which StageReady reports to
// the control plane handshake.
func (c *Core) MarkReady() { c.ready.Store(true) }

// StageReady reports whether MarkReady has been called.
func (c *Core) StageReady() bool { return c.ready.Load() }

// SetStageIdentity records the stage's name and environment tag, read back
// by the facade's StageInfo operation.
func (c *Core) SetStageIdentity(name, env string) {
	c.stageName = name
	c.stageEnv = env
}

// StageIdentity returns the stage's name and environment tag.
func (c *Core) StageIdentity() (name, env string) { return c.stageName, c.stageEnv }

// Close tears down every channel's worker pool. After Close, EnforceRequest
// on this Core will only ever hit channels that no longer drain, so callers
// should stop issuing requests first.
func (c *Core) Close() {
	c.channelsLock.Lock()
	defer c.channelsLock.Unlock()
	for _, ch := range c.channels {
		ch.Close()
	}
}
