// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/relabs-tech/loadcell_computer/internal/clock"
	"github.com/relabs-tech/loadcell_computer/internal/frame"
	"github.com/relabs-tech/loadcell_computer/internal/transport"
)

// Pipeline wires a transport to the fan-out dispatcher: every raw frame is
// decoded, stamped by a monotonic clock, and distributed to the registered
// sinks. Malformed frames are dropped and counted; they never stop the
// stream. Multiple pipelines (one per device) are fully independent.
type Pipeline struct {
	tr         transport.Transport
	decoder    *frame.Decoder
	clk        *clock.Clock
	dispatcher *Dispatcher

	frames       atomic.Uint64
	decodeErrors atomic.Uint64

	started bool
}

// New creates a pipeline for a device with numChannels load-cell channels.
// observer may be nil; when set it is notified of permanently failed sinks.
func New(tr transport.Transport, numChannels int, observer ErrorObserver) (*Pipeline, error) {
	dec, err := frame.NewDecoder(numChannels)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		tr:         tr,
		decoder:    dec,
		clk:        clock.New(),
		dispatcher: NewDispatcher(observer),
	}, nil
}

// Register adds a sink to the fan-out. Safe to call while frames are
// flowing.
func (p *Pipeline) Register(name string, sink Sink, opts Options) (*Handle, error) {
	return p.dispatcher.Register(name, sink, opts)
}

// Deregister removes a sink, draining its queue.
func (p *Pipeline) Deregister(h *Handle) error {
	return p.dispatcher.Deregister(h)
}

// Sinks returns a snapshot of the registered sink handles.
func (p *Pipeline) Sinks() []*Handle {
	return p.dispatcher.List()
}

// Clock returns the pipeline's sample clock, for consumers that need to
// align sample times with wall time.
func (p *Pipeline) Clock() *clock.Clock {
	return p.clk
}

// Start connects the transport and subscribes the frame handler.
func (p *Pipeline) Start() error {
	if p.started {
		return errors.New("pipeline: already started")
	}
	if err := p.tr.Connect(); err != nil {
		return fmt.Errorf("pipeline: transport connect: %w", err)
	}
	if err := p.tr.Subscribe(p.OnFrame); err != nil {
		p.tr.Disconnect()
		return fmt.Errorf("pipeline: transport subscribe: %w", err)
	}
	p.started = true
	return nil
}

// OnFrame is the transport notification handler: decode, stamp, dispatch.
// It is non-blocking so the transport callback path is never starved.
func (p *Pipeline) OnFrame(raw []byte) {
	values, err := p.decoder.Decode(raw)
	if err != nil {
		n := p.decodeErrors.Add(1)
		log.Printf("pipeline: dropping frame: %v (%d dropped so far)", err, n)
		return
	}

	p.frames.Add(1)
	p.dispatcher.Dispatch(p.clk.Stamp(values))
}

// Stop tears the pipeline down: unsubscribe first so no new frames arrive,
// then drain and stop every sink, then drop the device link.
func (p *Pipeline) Stop() error {
	var firstErr error

	if p.started {
		if err := p.tr.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	p.dispatcher.Close()

	if p.started {
		if err := p.tr.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.started = false
	}

	return firstErr
}

// Frames returns the number of valid frames decoded and dispatched.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// DecodeErrors returns the number of malformed frames dropped.
func (p *Pipeline) DecodeErrors() uint64 {
	return p.decodeErrors.Load()
}
