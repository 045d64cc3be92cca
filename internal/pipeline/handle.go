// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// Handle identifies one registered sink: its bounded delivery queue, its
// drop policy, and its current state. Created by Register, destroyed by
// Deregister or permanent failure.
type Handle struct {
	name             string
	sink             Sink
	policy           DropPolicy
	failureThreshold int

	queue chan loadcell.Sample
	done  chan struct{} // closed when the consumer goroutine exits

	state      atomic.Int32
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	acceptErrs atomic.Uint64

	failOnce  sync.Once
	closeOnce sync.Once
}

func newHandle(name string, sink Sink, opts Options) *Handle {
	return &Handle{
		name:             name,
		sink:             sink,
		policy:           opts.Policy,
		failureThreshold: opts.FailureThreshold,
		queue:            make(chan loadcell.Sample, opts.QueueSize),
		done:             make(chan struct{}),
	}
}

// Name returns the name the sink was registered under.
func (h *Handle) Name() string {
	return h.name
}

// State returns the sink's current delivery state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Stats returns a snapshot of the sink's delivery counters.
func (h *Handle) Stats() Stats {
	return Stats{
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
		Errors:    h.acceptErrs.Load(),
	}
}

// QueueLen returns the number of samples currently queued.
func (h *Handle) QueueLen() int {
	return len(h.queue)
}

// enqueue places a sample on the queue without ever blocking the caller.
// On a full queue the handle's drop policy decides which sample goes.
// Called only from the dispatch goroutine.
func (h *Handle) enqueue(s loadcell.Sample) {
	select {
	case h.queue <- s:
		return
	default:
	}

	// Queue full: the sink is not keeping up.
	h.state.CompareAndSwap(int32(StateActive), int32(StateDegraded))

	if h.policy == DropNewest {
		h.dropped.Add(1)
		return
	}

	// DropOldest: evict until the new sample fits. The consumer may take
	// a sample out from under us between the two selects, in which case
	// the send simply lands on the next try.
	for {
		select {
		case <-h.queue:
			h.dropped.Add(1)
		default:
		}
		select {
		case h.queue <- s:
			return
		default:
		}
	}
}

// run is the sink's consumer goroutine: it dequeues samples and hands them
// to Accept until the queue is closed. Repeated Accept failures trip the
// failure threshold and remove the sink from delivery.
func (h *Handle) run(d *Dispatcher) {
	defer close(h.done)

	consecutive := 0
	for s := range h.queue {
		if h.State() == StateFailed {
			// Draining after failure; remaining samples are discarded.
			continue
		}

		if err := h.sink.Accept(s); err != nil {
			h.acceptErrs.Add(1)
			consecutive++
			if consecutive >= h.failureThreshold {
				h.state.Store(int32(StateFailed))
				d.sinkFailed(h, err)
			}
			continue
		}

		consecutive = 0
		h.delivered.Add(1)

		// Queue drained: a degraded sink has caught up.
		if len(h.queue) == 0 {
			h.state.CompareAndSwap(int32(StateDegraded), int32(StateActive))
		}
	}
}
