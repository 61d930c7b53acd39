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

// Package stage wires together the lower-level packages — core's data
// model, differentiation's token builders, enforcement's objects, queue's
// submission/worker machinery, and stats's windowed counters — into the
// two structural types a running stage is actually built from: Channel
// and Core.
package stage

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"paioctl/internal/dataplane/core"
	"paioctl/internal/dataplane/differentiation"
	"paioctl/internal/dataplane/queue"
	"paioctl/internal/dataplane/stats"
)

// ErrDuplicateObject is returned when a housekeeping rule tries to create
// an object under a token already registered in the channel.
var ErrDuplicateObject = errors.New("stage: object token already registered in this channel")

// ErrNoSuchObject is returned when a request's object token does not match
// any object registered in the channel.
var ErrNoSuchObject = errors.New("stage: no enforcement object bound to this token")

// EnforcementObject is the subset of enforcement.Object a Channel needs in
// order to route and apply a ticket. It is declared independently here
// (rather than imported) so this package can depend on core without core
// or queue needing to depend on the concrete enforcement package — Go's
// structural interfaces mean enforcement.Object already satisfies this.
type EnforcementObject interface {
	ID() uint32
	Enforce(ticket *core.Ticket) core.Status
	Configure(args map[string]float64) error
}

// Channel groups the enforcement objects that share a channel-level
// differentiation token, along with the submission queue, worker pool,
// and windowed statistics counter that serve every ticket routed to it.
type Channel struct {
	id uint32

	objToken *differentiation.Builder

	mu      sync.RWMutex
	objects map[uint32]EnforcementObject

	ticketSeq atomic.Uint64

	submission *queue.SubmissionQueue
	completion *queue.CompletionQueue
	pool       *queue.Pool

	stats *stats.Counter

	fastPathOnly bool

	// softBudget, when non-nil, gives EnforceRequest's fast path a
	// lock-light pre-admission check: a request that would overdraw the
	// window's byte allowance is enforced (and denied) before ever
	// reaching its object's own, potentially blocking Enforce call.
	softBudget      *stats.SoftBudget
	softBudgetBytes int64
}

// ChannelOptions configures a new Channel's capacity and concurrency.
type ChannelOptions struct {
	// ContextType selects the OperationType/OperationContext universe used
	// to size this channel's statistics counter.
	ContextType core.ContextType

	// ObjectTokenFamily selects the hash family the object-level
	// differentiation builder uses.
	ObjectTokenFamily differentiation.HashFamily

	// QueueCapacity bounds the submission queue. Ignored if FastPathOnly.
	QueueCapacity int

	// WorkerCount is the number of worker-pool goroutines draining the
	// submission queue. Ignored if FastPathOnly.
	WorkerCount int

	// FastPathOnly makes EnforceRequest always enforce synchronously on
	// the calling goroutine, bypassing the submission queue and worker
	// pool entirely: a request that finds its object short waits inside
	// that object's Enforce on the caller's goroutine rather than queueing.
	FastPathOnly bool

	// SoftBudgetBytes, if positive, attaches a stats.SoftBudget to this
	// channel (see Channel.softBudget). Zero disables it.
	SoftBudgetBytes int64
}

// NewChannel builds a Channel identified by id. If opts.FastPathOnly is
// false, the submission queue and worker pool are started immediately.
func NewChannel(id uint32, opts ChannelOptions) *Channel {
	objToken := differentiation.NewBuilder(opts.ObjectTokenFamily)
	// Object-level differentiation keys exclusively on operation type and
	// context by default; a channel with a single catch-all object rebinds
	// this via SetObjectClassifiers.
	objToken.SetClassifiers(false, true, true)
	objToken.Bind()

	c := &Channel{
		id:              id,
		objToken:        objToken,
		objects:         make(map[uint32]EnforcementObject),
		stats:           stats.NewCounter(opts.ContextType),
		fastPathOnly:    opts.FastPathOnly,
		softBudgetBytes: opts.SoftBudgetBytes,
	}
	if opts.SoftBudgetBytes > 0 {
		c.softBudget = stats.NewSoftBudget(opts.SoftBudgetBytes)
	}

	if !opts.FastPathOnly {
		capacity := opts.QueueCapacity
		if capacity <= 0 {
			capacity = 256
		}
		workers := opts.WorkerCount
		if workers <= 0 {
			workers = 4
		}
		c.submission = queue.NewSubmissionQueue(capacity)
		c.completion = queue.NewCompletionQueue()
		c.pool = queue.NewPool(workers, c.submission, c.completion, c.enforceTicket)
		c.pool.Start()
	}

	return c
}

// ID returns the channel's own differentiation token.
func (c *Channel) ID() uint32 { return c.id }

// SetObjectClassifiers rebinds which classifiers participate in this
// channel's object-selection token. Must be called before objects are
// registered under tokens computed with the new scheme.
func (c *Channel) SetObjectClassifiers(useWorkflow, useType, useCtx bool) {
	c.objToken.SetClassifiers(useWorkflow, useType, useCtx)
	c.objToken.Bind()
}

// ObjectToken computes the object-selection token for a request's
// classifiers, using this channel's currently bound scheme.
func (c *Channel) ObjectToken(workflow, opType, opCtx uint32) uint32 {
	return c.objToken.Token(workflow, opType, opCtx)
}

// CreateObject registers obj under its own ID(). It fails with
// ErrDuplicateObject if that token is already bound, preserving the
// invariant that a housekeeping rule can never silently replace a live
// enforcement object.
func (c *Channel) CreateObject(obj EnforcementObject) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.objects[obj.ID()]; exists {
		return ErrDuplicateObject
	}
	c.objects[obj.ID()] = obj
	return nil
}

// RemoveObject unregisters the object bound to token, if any. It is not an
// error to remove a token that was never registered.
func (c *Channel) RemoveObject(token uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, token)
}

// ConfigureObject applies a runtime reconfiguration to the object bound to
// token.
func (c *Channel) ConfigureObject(token uint32, args map[string]float64) error {
	c.mu.RLock()
	obj, ok := c.objects[token]
	c.mu.RUnlock()
	if !ok {
		return ErrNoSuchObject
	}
	return obj.Configure(args)
}

func (c *Channel) lookup(token uint32) (EnforcementObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[token]
	return obj, ok
}

func (c *Channel) enforceTicket(ticket *core.Ticket) core.Status {
	token := uint32(ticket.OperationContext)
	obj, ok := c.lookup(token)
	if !ok {
		return core.StatusNotSupported
	}
	status := obj.Enforce(ticket)
	c.stats.Record(ticket.OperationType, uint64(ticket.Payload))
	return status
}

// EnforceRequest routes req through the object bound to its object token
// and returns the outcome. When the channel is fast-path-only, enforcement
// happens synchronously on the calling goroutine; otherwise the ticket is
// submitted to the worker pool and EnforceRequest blocks (bounded by
// timeout) for the pool to publish a result.
func (c *Channel) EnforceRequest(ctx core.Context, timeout time.Duration) core.Result {
	objectToken := c.ObjectToken(ctx.WorkflowID, uint32(ctx.OperationType), uint32(ctx.OperationContext))
	ticketID := c.ticketSeq.Add(1)
	ticket := &core.Ticket{
		TicketID:         ticketID,
		TotalOperations:  ctx.TotalOperations,
		Payload:          int64(ctx.OperationSize),
		OperationType:    ctx.OperationType,
		OperationContext: core.OperationContext(objectToken),
	}

	if c.fastPathOnly {
		if c.softBudget != nil && !c.softBudget.TryConsume(ticket.Payload) {
			return core.Result{Status: core.StatusEnforced, TicketID: ticketID}
		}
		status := c.enforceTicket(ticket)
		return core.Result{Status: status, TicketID: ticketID}
	}

	c.completion.Register(ticketID)
	if err := c.submission.Submit(ticket, timeout); err != nil {
		return core.Result{Status: core.StatusTimeout, TicketID: ticketID}
	}
	result, err := c.completion.Await(ticketID, timeout)
	if err != nil {
		return core.Result{Status: core.StatusTimeout, TicketID: ticketID}
	}
	return result
}

// Statistics returns the channel's windowed statistics snapshot.
func (c *Channel) Statistics() stats.Snapshot {
	return c.stats.Snapshot()
}

// TickStatistics closes out the channel's current statistics window and,
// if a soft budget is attached, reopens it with a fresh allowance for the
// window about to start.
func (c *Channel) TickStatistics() {
	c.stats.Tick()
	if c.softBudget != nil {
		c.softBudget.Reopen(c.softBudgetBytes)
	}
}

// Object returns the enforcement object registered under token, and
// whether that token is currently bound. The stage package deliberately
// does not depend on the concrete enforcement package, so callers that
// need a detailed statistics snapshot (agent.Agent, adminhttp) type-assert
// the returned value against enforcement.Object themselves.
func (c *Channel) Object(token uint32) (EnforcementObject, bool) {
	return c.lookup(token)
}

// ForEachObject calls fn once per currently registered object token. fn
// must not call back into CreateObject/RemoveObject on this channel.
func (c *Channel) ForEachObject(fn func(token uint32, obj EnforcementObject)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for token, obj := range c.objects {
		fn(token, obj)
	}
}

// Close stops the channel's worker pool, if one is running. Safe to call
// on a fast-path-only channel (no-op).
func (c *Channel) Close() {
	if c.pool != nil {
		c.pool.Stop()
	}
	if c.submission != nil {
		c.submission.Close()
	}
}
