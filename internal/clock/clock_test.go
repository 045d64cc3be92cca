package clock

import (
	"testing"
	"time"
)

func TestNowMonotonic(t *testing.T) {
	c := New()

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now < prev {
			t.Fatalf("clock went backwards: %v < %v", now, prev)
		}
		prev = now
	}
}

func TestNowAdvances(t *testing.T) {
	c := New()
	t0 := c.Now()
	time.Sleep(10 * time.Millisecond)
	t1 := c.Now()

	if t1 <= t0 {
		t.Errorf("expected clock to advance, got t0=%v t1=%v", t0, t1)
	}
}

func TestStamp(t *testing.T) {
	c := New()

	values := []float64{1, 2, 3}
	s := c.Stamp(values)

	if len(s.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(s.Values))
	}
	if s.T < 0 {
		t.Errorf("expected non-negative timestamp, got %v", s.T)
	}

	s2 := c.Stamp([]float64{4, 5, 6})
	if s2.T < s.T {
		t.Errorf("later stamp has earlier timestamp: %v < %v", s2.T, s.T)
	}
}

func TestStampCopiesValues(t *testing.T) {
	c := New()

	values := []float64{1, 2, 3}
	s := c.Stamp(values)

	// A transport may reuse its buffer for the next frame; the sample
	// already handed out must not see that.
	values[0] = 999
	if s.Values[0] != 1 {
		t.Errorf("sample aliases caller's slice: got %v, want 1", s.Values[0])
	}
}

func TestEpoch(t *testing.T) {
	before := time.Now()
	c := New()
	after := time.Now()

	if c.Epoch().Before(before) || c.Epoch().After(after) {
		t.Errorf("epoch %v outside [%v, %v]", c.Epoch(), before, after)
	}
}
