package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// BytesPerChannel is the wire size of one channel value: a little-endian
// IEEE-754 single-precision float.
const BytesPerChannel = 4

var ErrSizeMismatch = errors.New("frame: size mismatch")

// Decoder converts raw notification buffers into channel values.
// It is stateless and safe for concurrent use on independent buffers.
type Decoder struct {
	numChannels int
}

// NewDecoder creates a decoder for frames carrying numChannels values.
func NewDecoder(numChannels int) (*Decoder, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("frame: invalid channel count %d", numChannels)
	}
	return &Decoder{numChannels: numChannels}, nil
}

// Channels returns the channel count the decoder expects.
func (d *Decoder) Channels() int {
	return d.numChannels
}

// FrameSize returns the exact byte length of a valid frame.
func (d *Decoder) FrameSize() int {
	return d.numChannels * BytesPerChannel
}

// Decode interprets buf as consecutive little-endian float32 values and
// widens them to float64. Any length other than FrameSize() fails with
// ErrSizeMismatch; no partial parse is attempted. NaN and Inf values pass
// through unchanged.
func (d *Decoder) Decode(buf []byte) ([]float64, error) {
	if len(buf) != d.FrameSize() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(buf), d.FrameSize())
	}

	values := make([]float64, d.numChannels)
	for i := 0; i < d.numChannels; i++ {
		bits := binary.LittleEndian.Uint32(buf[i*BytesPerChannel:])
		values[i] = float64(math.Float32frombits(bits))
	}
	return values, nil
}

// Encode is the inverse of Decode: it narrows each value to float32 and
// writes the little-endian wire representation. Used by the replay source
// and for round-trip checks.
func (d *Decoder) Encode(values []float64) ([]byte, error) {
	if len(values) != d.numChannels {
		return nil, fmt.Errorf("frame: got %d values, want %d", len(values), d.numChannels)
	}

	buf := make([]byte, d.FrameSize())
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*BytesPerChannel:], math.Float32bits(float32(v)))
	}
	return buf, nil
}
