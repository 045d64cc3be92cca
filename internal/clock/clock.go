// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package clock

import (
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// Clock assigns timestamps to decoded frames. Timestamps count seconds from
// the moment the clock was created and come from Go's monotonic reading, so
// a wall-clock adjustment mid-run can never produce a sample stamped earlier
// than its predecessor.
type Clock struct {
	start time.Time
}

// New creates a clock whose epoch is the current instant.
func New() *Clock {
	return &Clock{start: time.Now()}
}

// Now returns seconds elapsed since the clock epoch.
func (c *Clock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// Epoch returns the wall-clock instant the epoch corresponds to, for
// consumers that need to align sample times with absolute time.
func (c *Clock) Epoch() time.Time {
	return c.start
}

// Stamp builds a Sample from decoded channel values. The values are copied
// so the caller may reuse its buffer for the next frame.
func (c *Clock) Stamp(values []float64) loadcell.Sample {
	return loadcell.Sample{
		T:      c.Now(),
		Values: append([]float64(nil), values...),
	}
}
