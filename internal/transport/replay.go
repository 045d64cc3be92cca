// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/frame"
)

// ReplayOptions configures the synthetic replay transport.
type ReplayOptions struct {
	Channels int
	Interval time.Duration // frame period, defaults to 20ms (50 Hz)
}

type replayTransport struct {
	opts    ReplayOptions
	encoder *frame.Decoder

	mu      sync.Mutex
	handler FrameHandler
	ticker  *time.Ticker
	stop    chan struct{}
	done    chan struct{}
}

// NewReplay creates a transport that generates smooth synthetic load-cell
// frames on a ticker, for running the pipeline with no hardware attached.
func NewReplay(opts ReplayOptions) (Transport, error) {
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Millisecond
	}
	enc, err := frame.NewDecoder(opts.Channels)
	if err != nil {
		return nil, err
	}
	return &replayTransport{opts: opts, encoder: enc}, nil
}

func (t *replayTransport) Connect() error {
	log.Printf("replay: generating %d-channel frames every %v", t.opts.Channels, t.opts.Interval)
	return nil
}

func (t *replayTransport) Subscribe(handler FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handler = handler
	if t.stop != nil {
		return nil
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.ticker = time.NewTicker(t.opts.Interval)
	go t.emitLoop(t.ticker, t.stop, t.done)
	return nil
}

func (t *replayTransport) emitLoop(ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	start := time.Now()
	values := make([]float64, t.opts.Channels)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		elapsed := time.Since(start).Seconds()
		for i := range values {
			// Each channel gets its own phase and amplitude so plots
			// are distinguishable.
			values[i] = float64(100*(i+1)) * math.Sin(elapsed+float64(i)*0.5)
		}

		buf, err := t.encoder.Encode(values)
		if err != nil {
			log.Printf("replay: encode error: %v", err)
			continue
		}

		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(buf)
		}
	}
}

func (t *replayTransport) Unsubscribe() error {
	t.mu.Lock()
	t.handler = nil
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
		t.ticker.Stop()
	}
	done := t.done
	t.done = nil
	t.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

func (t *replayTransport) Disconnect() error {
	return nil
}
