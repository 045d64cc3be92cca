// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// Dispatcher fans one sample stream out to all registered sinks. Dispatch
// never blocks on a slow sink: each sink has its own bounded queue and its
// own consumer goroutine, and a full queue is handled by the sink's drop
// policy. A sink whose Accept keeps failing is removed without disturbing
// the others.
//
// Registration and deregistration are safe while dispatch is in progress.
// Multiple dispatchers are fully independent.
type Dispatcher struct {
	mu     sync.RWMutex
	sinks  map[string]*Handle
	closed bool

	dispatched atomic.Uint64

	onSinkError ErrorObserver
}

// NewDispatcher creates an empty dispatcher. observer may be nil; when set
// it is called once for every sink that is removed after repeated Accept
// failures.
func NewDispatcher(observer ErrorObserver) *Dispatcher {
	return &Dispatcher{
		sinks:       make(map[string]*Handle),
		onSinkError: observer,
	}
}

// Register adds a sink under a unique name and starts its consumer
// goroutine. The returned handle is live as soon as Register returns.
func (d *Dispatcher) Register(name string, sink Sink, opts Options) (*Handle, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}
	if _, exists := d.sinks[name]; exists {
		return nil, ErrSinkExists
	}

	h := newHandle(name, sink, opts.withDefaults())
	d.sinks[name] = h
	go h.run(d)

	log.Printf("pipeline: registered sink %q (queue=%d, policy=%s)", name, cap(h.queue), h.policy)
	return h, nil
}

// Deregister removes a sink from delivery, waits for its consumer to drain
// the queue and stop, and closes the sink if it implements io.Closer.
// Deregistering a handle that already failed releases its resources and
// returns nil.
func (d *Dispatcher) Deregister(h *Handle) error {
	d.mu.Lock()
	cur, ok := d.sinks[h.name]
	if ok && cur == h {
		delete(d.sinks, h.name)
		close(h.queue)
	} else if h.State() != StateFailed {
		d.mu.Unlock()
		return ErrSinkNotFound
	}
	d.mu.Unlock()

	<-h.done
	return closeSink(h)
}

// List returns a snapshot of the currently registered handles.
func (d *Dispatcher) List() []*Handle {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handles := make([]*Handle, 0, len(d.sinks))
	for _, h := range d.sinks {
		handles = append(handles, h)
	}
	return handles
}

// Dispatch distributes one sample to every active sink. It is driven by
// the transport notification path and must return promptly, so every
// enqueue is non-blocking. Per-sink delivery order is the dispatch order,
// minus whatever the drop policy discarded.
func (d *Dispatcher) Dispatch(s loadcell.Sample) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	d.dispatched.Add(1)

	for _, h := range d.sinks {
		if h.State() == StateFailed {
			continue
		}
		h.enqueue(s)
	}
}

// Dispatched returns the total number of samples dispatched.
func (d *Dispatcher) Dispatched() uint64 {
	return d.dispatched.Load()
}

// Close deregisters every sink, draining their queues, and rejects any
// further registration or dispatch.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true

	handles := make([]*Handle, 0, len(d.sinks))
	for _, h := range d.sinks {
		handles = append(handles, h)
		close(h.queue)
	}
	d.sinks = make(map[string]*Handle)
	d.mu.Unlock()

	for _, h := range handles {
		<-h.done
		if err := closeSink(h); err != nil {
			log.Printf("pipeline: error closing sink %q: %v", h.name, err)
		}
	}
}

// sinkFailed removes a sink that tripped its failure threshold. Called from
// the sink's own consumer goroutine; the consumer keeps draining until the
// queue is closed here.
func (d *Dispatcher) sinkFailed(h *Handle, err error) {
	d.mu.Lock()
	if cur, ok := d.sinks[h.name]; ok && cur == h {
		delete(d.sinks, h.name)
		close(h.queue)
	}
	d.mu.Unlock()

	log.Printf("pipeline: sink %q failed after %d consecutive errors, removed: %v",
		h.name, h.failureThreshold, err)

	h.failOnce.Do(func() {
		if d.onSinkError != nil {
			d.onSinkError(h.name, err)
		}
	})
}

func closeSink(h *Handle) error {
	var err error
	h.closeOnce.Do(func() {
		if c, ok := h.sink.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
