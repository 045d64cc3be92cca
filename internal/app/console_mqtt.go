package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/loadcell_computer/internal/config"
	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// RunConsoleMQTT subscribes to the aggregated loadcell topic and prints
// every sample, for checking what the bridge is actually publishing.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	rawToken := client.Subscribe(cfg.TopicRaw, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s loadcell.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: sample unmarshal error: %v", err)
			return
		}

		fmt.Printf("[RAW ] t=%8.3f", s.T)
		for i, v := range s.Values {
			fmt.Printf("  ch%d=%8.2f", i+1, v)
		}
		fmt.Println()
	})
	rawToken.Wait()
	if rawToken.Error() != nil {
		return rawToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicRaw)

	// Also watch the first scalar channel to confirm per-channel fan-out.
	ch1Topic := fmt.Sprintf("%s1", cfg.TopicChannelPrefix)
	ch1Token := client.Subscribe(ch1Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var sc loadcell.Scalar
		if err := json.Unmarshal(msg.Payload(), &sc); err != nil {
			log.Printf("console: scalar unmarshal error: %v", err)
			return
		}

		fmt.Printf("[CH1 ] t=%8.3f  value=%8.2f\n", sc.T, sc.Value)
	})
	ch1Token.Wait()
	if ch1Token.Error() != nil {
		return ch1Token.Error()
	}
	log.Printf("console: subscribed to %s", ch1Topic)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
