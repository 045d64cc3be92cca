// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// CSVRecorder writes one row per sample: the timestamp followed by every
// channel value. Rows are flushed to disk periodically and on Close, so a
// crash loses at most one flush interval of data. Register it with the
// drop-newest policy: a recording wants a gap-free history prefix, not the
// freshest sample.
type CSVRecorder struct {
	file        *os.File
	writer      *csv.Writer
	numChannels int

	flushInterval time.Duration
	lastFlush     time.Time

	rows atomic.Uint64
}

// NewCSVRecorder creates the output file and writes the header row
// (t,ch1..chN). flushInterval <= 0 disables periodic flushing; rows are
// then only flushed on Close.
func NewCSVRecorder(path string, numChannels int, flushInterval time.Duration) (*CSVRecorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create %s: %w", path, err)
	}

	writer := csv.NewWriter(file)

	header := make([]string, 0, numChannels+1)
	header = append(header, "t")
	for i := 0; i < numChannels; i++ {
		header = append(header, fmt.Sprintf("ch%d", i+1))
	}
	if err := writer.Write(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	log.Printf("csv: recording %d channels to %s", numChannels, path)

	return &CSVRecorder{
		file:          file,
		writer:        writer,
		numChannels:   numChannels,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
	}, nil
}

// Accept appends one row. Called serially from the sink's consumer
// goroutine.
func (r *CSVRecorder) Accept(sample loadcell.Sample) error {
	row := make([]string, 0, len(sample.Values)+1)
	row = append(row, strconv.FormatFloat(sample.T, 'f', 6, 64))
	for _, v := range sample.Values {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}

	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	r.rows.Add(1)

	if r.flushInterval > 0 && time.Since(r.lastFlush) >= r.flushInterval {
		r.writer.Flush()
		if err := r.writer.Error(); err != nil {
			return fmt.Errorf("csv: flush: %w", err)
		}
		r.lastFlush = time.Now()
	}
	return nil
}

// Rows returns the number of rows written so far (excluding the header).
// Safe to call from outside the consumer goroutine.
func (r *CSVRecorder) Rows() uint64 {
	return r.rows.Load()
}

// Close flushes pending rows and closes the file.
func (r *CSVRecorder) Close() error {
	r.writer.Flush()
	flushErr := r.writer.Error()
	closeErr := r.file.Close()

	log.Printf("csv: saved %d rows to %s", r.rows.Load(), r.file.Name())

	if flushErr != nil {
		return fmt.Errorf("csv: flush: %w", flushErr)
	}
	return closeErr
}
