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

package queue

import (
	"errors"
	"sync"
	"time"

	"paioctl/internal/dataplane/core"
)

// ErrNoSuchTicket is returned by Await when a ticket id was never
// registered (or was already collected) on the completion queue.
var ErrNoSuchTicket = errors.New("queue: no completion registered for ticket")

// ErrAwaitTimeout is returned by Await when the result does not arrive
// within the caller's deadline. The registration is removed so a late
// worker publish does not leak a channel forever.
var ErrAwaitTimeout = errors.New("queue: await timed out waiting for result")

// CompletionQueue hands results from worker-pool goroutines back to
// whichever goroutine submitted the originating ticket. Each pending
// ticket gets its own single-slot channel; the map itself is guarded by a
// mutex since registration and publication race across goroutines.
type CompletionQueue struct {
	mu      sync.Mutex
	pending map[uint64]chan core.Result
}

// NewCompletionQueue builds an empty completion queue.
func NewCompletionQueue() *CompletionQueue {
	return &CompletionQueue{pending: make(map[uint64]chan core.Result)}
}

// Register reserves a completion slot for ticketID before the ticket is
// handed to the submission queue, so a result can never race ahead of the
// registration.
func (c *CompletionQueue) Register(ticketID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[ticketID] = make(chan core.Result, 1)
}

// Publish delivers result to whoever registered its ticket id. It is a
// no-op if nobody is waiting (e.g. the waiter already timed out), matching
// the at-most-once delivery the completion queue promises.
func (c *CompletionQueue) Publish(result core.Result) {
	c.mu.Lock()
	ch, ok := c.pending[result.TicketID]
	if ok {
		delete(c.pending, result.TicketID)
	}
	c.mu.Unlock()

	if ok {
		ch <- result
	}
}

// Await blocks until the result for ticketID is published or timeout
// elapses. A timeout of zero or less waits indefinitely.
func (c *CompletionQueue) Await(ticketID uint64, timeout time.Duration) (core.Result, error) {
	c.mu.Lock()
	ch, ok := c.pending[ticketID]
	c.mu.Unlock()
	if !ok {
		return core.Result{}, ErrNoSuchTicket
	}

	if timeout <= 0 {
		return <-ch, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case result := <-ch:
		return result, nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, ticketID)
		c.mu.Unlock()
		return core.Result{}, ErrAwaitTimeout
	}
}

// Pending reports the number of tickets currently awaiting a result, for
// diagnostics only.
func (c *CompletionQueue) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
