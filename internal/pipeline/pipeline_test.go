package pipeline

import (
	"sync"
	"testing"

	"github.com/relabs-tech/loadcell_computer/internal/frame"
	"github.com/relabs-tech/loadcell_computer/internal/transport"
)

// pushTransport hands the subscribed handler to the test so frames can be
// injected directly.
type pushTransport struct {
	mu      sync.Mutex
	handler transport.FrameHandler

	connected    bool
	subscribed   bool
	disconnected bool
}

func (t *pushTransport) Connect() error { t.connected = true; return nil }

func (t *pushTransport) Subscribe(h transport.FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
	t.subscribed = true
	return nil
}

func (t *pushTransport) Unsubscribe() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = nil
	return nil
}

func (t *pushTransport) Disconnect() error { t.disconnected = true; return nil }

func (t *pushTransport) push(buf []byte) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h(buf)
	}
}

func TestPipelineMalformedFrameBetweenValidFrames(t *testing.T) {
	tr := &pushTransport{}
	p, err := New(tr, 12, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	sink := &captureSink{}
	h, err := p.Register("capture", sink, Options{QueueSize: 16})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	enc, _ := frame.NewDecoder(12)
	valid := make([]float64, 12)
	for i := range valid {
		valid[i] = float64(i)
	}
	buf, err := enc.Encode(valid)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tr.push(buf)
	tr.push(make([]byte, 40)) // malformed: short frame
	tr.push(buf)

	if got := p.DecodeErrors(); got != 1 {
		t.Errorf("decode errors: got %d, want 1", got)
	}
	if got := p.Frames(); got != 2 {
		t.Errorf("frames: got %d, want 2", got)
	}

	waitUntil(t, func() bool { return h.Stats().Delivered == 2 }, "valid frames delivered")

	samples := sink.snapshot()
	if len(samples) != 2 {
		t.Fatalf("sink got %d samples, want 2", len(samples))
	}
	for _, s := range samples {
		if len(s.Values) != 12 {
			t.Fatalf("sample has %d values, want 12", len(s.Values))
		}
		for i, v := range s.Values {
			if v != float64(i) {
				t.Errorf("channel %d: got %v, want %v", i, v, float64(i))
			}
		}
	}
	if samples[1].T < samples[0].T {
		t.Errorf("timestamps not monotonic: %v then %v", samples[0].T, samples[1].T)
	}
}

func TestPipelineStopOrdering(t *testing.T) {
	tr := &pushTransport{}
	p, err := New(tr, 12, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sink := &captureSink{}
	if _, err := p.Register("capture", sink, Options{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if !tr.disconnected {
		t.Error("transport not disconnected on Stop")
	}

	// After Stop no sink may observe teardown as a sample.
	enc, _ := frame.NewDecoder(12)
	buf, _ := enc.Encode(make([]float64, 12))
	tr.push(buf)

	if got := len(sink.snapshot()); got != 0 {
		t.Errorf("sink received %d samples after Stop", got)
	}
}

func TestPipelineDoubleStart(t *testing.T) {
	p, err := New(&pushTransport{}, 12, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(); err == nil {
		t.Error("second Start: expected error")
	}
}
