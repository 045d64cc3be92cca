package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/loadcell_computer/internal/config"
	"github.com/relabs-tech/loadcell_computer/internal/pipeline"
	"github.com/relabs-tech/loadcell_computer/internal/sink"
	"github.com/relabs-tech/loadcell_computer/internal/transport"
)

// RunReplay drives the full fan-out from a synthetic frame source, for
// exercising sinks and viewers with no device attached.
func RunReplay() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDReplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("replay: connected to MQTT broker at %s", cfg.MQTTBroker)

	tr, err := transport.NewReplay(transport.ReplayOptions{
		Channels: cfg.NumChannels,
		Interval: time.Duration(cfg.ReplayFrameInterval) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	p, err := pipeline.New(tr, cfg.NumChannels, func(name string, err error) {
		log.Printf("replay: sink %q permanently failed: %v", name, err)
	})
	if err != nil {
		return err
	}

	liveOpts := pipeline.Options{
		QueueSize:        cfg.SinkQueueSize,
		Policy:           pipeline.DropOldest,
		FailureThreshold: cfg.SinkFailureThreshold,
	}

	publisher := sink.NewMQTTPublisher(client, cfg.TopicRaw, cfg.TopicChannelPrefix)
	if _, err := p.Register("mqtt", publisher, liveOpts); err != nil {
		return err
	}

	live := sink.NewLiveServer(cfg.WebServerPort)
	live.Start()
	if _, err := p.Register("live", live, liveOpts); err != nil {
		return err
	}

	console := sink.NewConsolePrinter(os.Stdout, time.Duration(cfg.ConsoleLogInterval)*time.Millisecond)
	if _, err := p.Register("console", console, liveOpts); err != nil {
		return err
	}

	if err := p.Start(); err != nil {
		return err
	}
	log.Println("replay: generating frames (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("replay: shutting down")
	return p.Stop()
}
