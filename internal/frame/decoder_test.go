package frame

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDecodeSizeMismatch(t *testing.T) {
	d, err := NewDecoder(12)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	for _, n := range []int{0, 1, 40, 47, 49, 96} {
		if _, err := d.Decode(make([]byte, n)); !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("Decode(%d bytes): expected ErrSizeMismatch, got %v", n, err)
		}
	}
}

func TestDecodeNilBuffer(t *testing.T) {
	d, _ := NewDecoder(12)
	if _, err := d.Decode(nil); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("Decode(nil): expected ErrSizeMismatch, got %v", err)
	}
}

func TestDecodeValues(t *testing.T) {
	d, _ := NewDecoder(3)

	buf := make([]byte, d.FrameSize())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-2.25))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(0))

	values, err := d.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := []float64{1.5, -2.25, 0}
	for i, v := range values {
		if v != want[i] {
			t.Errorf("channel %d: got %v, want %v", i, v, want[i])
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d, _ := NewDecoder(4)

	// Values exactly representable as float32, plus NaN and infinities.
	cases := [][]float64{
		{0, 1, -1, 0.5},
		{12345.5, -0.0078125, 3.0, 1e10},
		{math.Inf(1), math.Inf(-1), float64(math.Float32frombits(0x7fc00001)), 0},
	}

	for _, values := range cases {
		buf, err := d.Encode(values)
		if err != nil {
			t.Fatalf("Encode(%v): %v", values, err)
		}
		got, err := d.Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		// Compare on the 4-byte wire representation so NaN payloads count.
		again, err := d.Encode(got)
		if err != nil {
			t.Fatalf("re-Encode: %v", err)
		}
		for i := range buf {
			if buf[i] != again[i] {
				t.Fatalf("round trip byte %d: got 0x%02x, want 0x%02x (values %v)", i, again[i], buf[i], values)
			}
		}
	}
}

func TestEncodeWrongLength(t *testing.T) {
	d, _ := NewDecoder(12)
	if _, err := d.Encode([]float64{1, 2, 3}); err == nil {
		t.Error("Encode with wrong value count: expected error")
	}
}

func TestNewDecoderInvalidChannelCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewDecoder(n); err == nil {
			t.Errorf("NewDecoder(%d): expected error", n)
		}
	}
}
