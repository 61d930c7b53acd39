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
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"

	rendezvous "github.com/dgryski/go-rendezvous"

	"paioctl/internal/dataplane/core"
)

// Enforcer applies a ticket's policy and returns its outcome. A Channel
// supplies this as a closure over its object map so the pool itself stays
// ignorant of differentiation and routing.
type Enforcer func(ticket *core.Ticket) core.Status

// Pool drains a SubmissionQueue with a fixed number of worker goroutines,
// invoking an Enforcer per ticket and publishing the outcome to a
// CompletionQueue. Its Start/Stop pair follows the same atomic
// compare-and-swap plus close(stopChan) plus WaitGroup shutdown idiom used
// throughout this stage's background loops.
//
// A single dispatcher goroutine drains the shared SubmissionQueue and
// fans each ticket out to one of size per-worker channels, chosen by
// rendezvous-hashing the ticket's object token (OperationContext) across
// the worker set. Every ticket bound for the same enforcement object
// therefore always lands on the same worker goroutine — serializing
// that object's Enforce calls without an object-level lock — and the
// assignment degrades gracefully (only that object's tickets move) if
// the pool is ever resized.
type Pool struct {
	submission *SubmissionQueue
	completion *CompletionQueue
	enforce    Enforcer

	size        int
	workerChans []chan *core.Ticket
	nodeNames   []string
	nodeIndex   map[string]int
	affinity    *rendezvous.Rendezvous

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPool builds a worker pool of size goroutines draining submission and
// publishing to completion via enforce. The pool is not started until
// Start is called.
func NewPool(size int, submission *SubmissionQueue, completion *CompletionQueue, enforce Enforcer) *Pool {
	if size <= 0 {
		size = 1
	}
	nodeNames := make([]string, size)
	nodeIndex := make(map[string]int, size)
	workerChans := make([]chan *core.Ticket, size)
	for i := range nodeNames {
		nodeNames[i] = strconv.Itoa(i)
		nodeIndex[nodeNames[i]] = i
		workerChans[i] = make(chan *core.Ticket, 1)
	}
	return &Pool{
		submission:  submission,
		completion:  completion,
		enforce:     enforce,
		size:        size,
		workerChans: workerChans,
		nodeNames:   nodeNames,
		nodeIndex:   nodeIndex,
		affinity:    rendezvous.New(nodeNames, fnvHash),
		stopCh:      make(chan struct{}),
	}
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Start launches the dispatcher and the pool's worker goroutines. Calling
// Start twice is a no-op.
func (p *Pool) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.wg.Add(1)
	go p.dispatch()
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(p.workerChans[i])
	}
}

func (p *Pool) dispatch() {
	defer p.wg.Done()
	tickets := p.submission.Tickets()
	for {
		select {
		case <-p.stopCh:
			return
		case ticket, ok := <-tickets:
			if !ok {
				return
			}
			key := strconv.FormatUint(uint64(ticket.OperationContext), 10)
			idx := p.nodeIndex[p.affinity.Lookup(key)]
			select {
			case p.workerChans[idx] <- ticket:
			case <-p.stopCh:
				return
			}
		}
	}
}

func (p *Pool) worker(tickets <-chan *core.Ticket) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case ticket := <-tickets:
			status := p.enforce(ticket)
			p.completion.Publish(core.Result{Status: status, TicketID: ticket.TicketID})
		}
	}
}

// Stop signals every worker goroutine to exit after its current ticket and
// waits for them all to return. Stop is idempotent.
func (p *Pool) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	p.wg.Wait()
}
