package sink

import (
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// ConsolePrinter prints a readable line per sample, throttled to one line
// per interval so a 50 Hz stream stays legible.
type ConsolePrinter struct {
	w        io.Writer
	interval time.Duration
	lastLine time.Time
}

// NewConsolePrinter writes throttled sample lines to w (normally
// os.Stdout). interval <= 0 prints every sample.
func NewConsolePrinter(w io.Writer, interval time.Duration) *ConsolePrinter {
	return &ConsolePrinter{w: w, interval: interval}
}

func (p *ConsolePrinter) Accept(sample loadcell.Sample) error {
	if p.interval > 0 && time.Since(p.lastLine) < p.interval {
		return nil
	}
	p.lastLine = time.Now()

	fmt.Fprintf(p.w, "[LOAD] t=%8.3f", sample.T)
	for i, v := range sample.Values {
		fmt.Fprintf(p.w, "  ch%d=%8.2f", i+1, v)
	}
	fmt.Fprintln(p.w)
	return nil
}

// Close is a no-op; the printer does not own its writer.
func (p *ConsolePrinter) Close() error {
	return nil
}
