package sink

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

func TestConsolePrinterFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf, 0)

	if err := p.Accept(loadcell.Sample{T: 1.5, Values: []float64{12.34, -5.6}}); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"[LOAD]", "t=", "ch1=", "ch2=", "12.34", "-5.60"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestConsolePrinterThrottle(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsolePrinter(&buf, time.Hour)

	for i := 0; i < 10; i++ {
		if err := p.Accept(loadcell.Sample{T: float64(i), Values: []float64{1}}); err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("expected 1 line within the interval, got %d", got)
	}
}
