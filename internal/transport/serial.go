package transport

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialOptions configures the serial transport. The device streams the
// same fixed-size binary frames over UART as it does over BLE, with no
// framing header, so FrameSize must match the device's channel count.
type SerialOptions struct {
	PortName  string
	BaudRate  uint
	FrameSize int
}

type serialTransport struct {
	opts SerialOptions

	mu      sync.Mutex
	port    io.ReadWriteCloser
	handler FrameHandler
	stop    chan struct{}
	done    chan struct{}
}

// NewSerial creates a transport that reads frames from a serial port.
func NewSerial(opts SerialOptions) Transport {
	return &serialTransport{opts: opts}
}

func (t *serialTransport) Connect() error {
	if t.opts.FrameSize <= 0 {
		return fmt.Errorf("serial: invalid frame size %d", t.opts.FrameSize)
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:        t.opts.PortName,
		BaudRate:        t.opts.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", t.opts.PortName, err)
	}

	t.mu.Lock()
	t.port = port
	t.mu.Unlock()

	log.Printf("serial: port opened on %s at %d baud", t.opts.PortName, t.opts.BaudRate)
	return nil
}

func (t *serialTransport) Subscribe(handler FrameHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return errors.New("serial: not connected")
	}
	if t.stop != nil {
		t.handler = handler
		return nil
	}

	t.handler = handler
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.readLoop(t.port, t.stop, t.done)
	return nil
}

// readLoop reads fixed-size frames until the port errors or Unsubscribe is
// called. A short read mid-frame is a stream error, not a malformed frame;
// the loop exits and the surrounding app decides whether to reconnect.
func (t *serialTransport) readLoop(port io.Reader, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, t.opts.FrameSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if _, err := io.ReadFull(port, buf); err != nil {
			select {
			case <-stop:
				// Port closed during shutdown.
			default:
				log.Printf("serial: read error: %v", err)
			}
			return
		}

		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(buf)
		}
	}
}

func (t *serialTransport) Unsubscribe() error {
	t.mu.Lock()
	t.handler = nil
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.mu.Unlock()
	return nil
}

func (t *serialTransport) Disconnect() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	done := t.done
	t.done = nil
	t.mu.Unlock()

	if port == nil {
		return nil
	}
	// Closing the port unblocks a pending ReadFull in the loop.
	err := port.Close()
	if done != nil {
		<-done
	}
	if err != nil {
		return fmt.Errorf("serial: close: %w", err)
	}
	return nil
}
