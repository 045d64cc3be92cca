package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/loadcell_computer/internal/config"
	"github.com/relabs-tech/loadcell_computer/internal/pipeline"
	"github.com/relabs-tech/loadcell_computer/internal/sink"
)

// RunBridge receives load-cell frames from the device and fans them out to
// the MQTT publisher and the websocket live view.
func RunBridge() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("bridge: connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Build the pipeline on the configured transport ----
	tr := newFrameSource(cfg)

	p, err := pipeline.New(tr, cfg.NumChannels, func(name string, err error) {
		log.Printf("bridge: sink %q permanently failed: %v", name, err)
	})
	if err != nil {
		return err
	}

	// ---- 3) Register sinks ----
	publisher := sink.NewMQTTPublisher(client, cfg.TopicRaw, cfg.TopicChannelPrefix)
	if _, err := p.Register("mqtt", publisher, pipeline.Options{
		QueueSize:        cfg.SinkQueueSize,
		Policy:           pipeline.DropOldest,
		FailureThreshold: cfg.SinkFailureThreshold,
	}); err != nil {
		return err
	}

	live := sink.NewLiveServer(cfg.WebServerPort)
	live.Start()
	if _, err := p.Register("live", live, pipeline.Options{
		QueueSize:        cfg.SinkQueueSize,
		Policy:           pipeline.DropOldest,
		FailureThreshold: cfg.SinkFailureThreshold,
	}); err != nil {
		return err
	}

	// ---- 4) Start receiving frames ----
	if err := p.Start(); err != nil {
		return err
	}
	log.Printf("bridge: streaming. Connect a viewer to ws://localhost:%d/ws", cfg.WebServerPort)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("bridge: shutting down")
	if err := p.Stop(); err != nil {
		log.Printf("bridge: stop error: %v", err)
	}
	log.Printf("bridge: %d frames bridged, %d malformed frames dropped", p.Frames(), p.DecodeErrors())
	return nil
}
