package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/loadcell_computer/internal/config"
	"github.com/relabs-tech/loadcell_computer/internal/pipeline"
	"github.com/relabs-tech/loadcell_computer/internal/sink"
)

// RunRecorder receives load-cell frames from the device and records them to
// CSV, with a throttled console echo.
func RunRecorder() error {
	cfg := config.Get()

	tr := newFrameSource(cfg)

	p, err := pipeline.New(tr, cfg.NumChannels, func(name string, err error) {
		log.Printf("recorder: sink %q permanently failed: %v", name, err)
	})
	if err != nil {
		return err
	}

	// The recorder wants gap-free history, so overflow drops the newest
	// sample rather than punching holes in what is already queued.
	recorder, err := sink.NewCSVRecorder(cfg.CSVOutputPath, cfg.NumChannels,
		time.Duration(cfg.CSVFlushInterval)*time.Millisecond)
	if err != nil {
		return err
	}
	if _, err := p.Register("csv", recorder, pipeline.Options{
		QueueSize:        cfg.RecorderQueueSize,
		Policy:           pipeline.DropNewest,
		FailureThreshold: cfg.SinkFailureThreshold,
	}); err != nil {
		recorder.Close()
		return err
	}

	console := sink.NewConsolePrinter(os.Stdout, time.Duration(cfg.ConsoleLogInterval)*time.Millisecond)
	if _, err := p.Register("console", console, pipeline.Options{
		QueueSize:        cfg.SinkQueueSize,
		Policy:           pipeline.DropOldest,
		FailureThreshold: cfg.SinkFailureThreshold,
	}); err != nil {
		return err
	}

	if err := p.Start(); err != nil {
		return err
	}
	log.Println("recorder: receiving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("recorder: shutting down")
	if err := p.Stop(); err != nil {
		log.Printf("recorder: stop error: %v", err)
	}
	log.Printf("recorder: %d frames recorded, %d malformed frames dropped", p.Frames(), p.DecodeErrors())
	return nil
}
