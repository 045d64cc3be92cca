package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

func TestCSVRecorderHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loadcells.csv")

	rec, err := NewCSVRecorder(path, 12, 0)
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}

	// 12 channels at 50 Hz for 2 seconds: 100 frames.
	const n = 100
	for i := 0; i < n; i++ {
		values := make([]float64, 12)
		for ch := range values {
			values[ch] = float64(i*12 + ch)
		}
		s := loadcell.Sample{T: float64(i) * 0.02, Values: values}
		if err := rec.Accept(s); err != nil {
			t.Fatalf("Accept row %d: %v", i, err)
		}
	}

	if got := rec.Rows(); got != n {
		t.Errorf("Rows(): got %d, want %d", got, n)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	if len(records) != n+1 {
		t.Fatalf("expected header + %d rows, got %d records", n, len(records))
	}

	header := records[0]
	if len(header) != 13 || header[0] != "t" || header[1] != "ch1" || header[12] != "ch12" {
		t.Errorf("unexpected header: %v", header)
	}

	// Timestamps strictly increasing, values round-trip.
	prev := -1.0
	for i, row := range records[1:] {
		ts, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			t.Fatalf("row %d timestamp %q: %v", i, row[0], err)
		}
		if ts <= prev {
			t.Fatalf("row %d timestamp not increasing: %v after %v", i, ts, prev)
		}
		prev = ts

		v0, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			t.Fatalf("row %d ch1 %q: %v", i, row[1], err)
		}
		if v0 != float64(i*12) {
			t.Errorf("row %d ch1: got %v, want %v", i, v0, float64(i*12))
		}
	}
}

func TestCSVRecorderPeriodicFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.csv")

	rec, err := NewCSVRecorder(path, 2, 1) // 1ns: flush on every row
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}
	defer rec.Close()

	if err := rec.Accept(loadcell.Sample{T: 0.1, Values: []float64{1, 2}}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Row must be on disk without Close.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected flushed data on disk")
	}
}

func TestCSVRecorderRowsConcurrentRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")

	rec, err := NewCSVRecorder(path, 2, 0)
	if err != nil {
		t.Fatalf("NewCSVRecorder: %v", err)
	}
	defer rec.Close()

	const n = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			if err := rec.Accept(loadcell.Sample{T: float64(i), Values: []float64{1, 2}}); err != nil {
				t.Errorf("Accept: %v", err)
				return
			}
		}
	}()

	// Rows is read from outside the consumer goroutine, as the apps do for
	// their shutdown summary.
	deadline := time.Now().Add(2 * time.Second)
	for rec.Rows() < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	<-done

	if got := rec.Rows(); got != n {
		t.Errorf("Rows(): got %d, want %d", got, n)
	}
}

func TestCSVRecorderBadPath(t *testing.T) {
	if _, err := NewCSVRecorder(filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv"), 2, 0); err == nil {
		t.Error("expected error for unwritable path")
	}
}
