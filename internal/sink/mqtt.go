package sink

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/loadcell_computer/internal/loadcell"
)

// MQTTPublisher publishes every sample twice: the aggregated frame on the
// raw topic ({t, data[N]}), and one scalar message per channel on
// "<prefix><i>" ({t, value}), so plot frontends can pick individual
// channels. Publishing waits for the broker ack on the sink's own consumer
// goroutine; a lost broker surfaces as Accept errors and eventually trips
// the failure threshold.
type MQTTPublisher struct {
	client        mqtt.Client
	topicRaw      string
	channelPrefix string
}

// NewMQTTPublisher wraps an already-connected MQTT client.
func NewMQTTPublisher(client mqtt.Client, topicRaw, channelPrefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client:        client,
		topicRaw:      topicRaw,
		channelPrefix: channelPrefix,
	}
}

// ChannelTopic returns the scalar topic for channel i (zero-based).
func (p *MQTTPublisher) ChannelTopic(i int) string {
	return fmt.Sprintf("%s%d", p.channelPrefix, i+1)
}

func (p *MQTTPublisher) Accept(sample loadcell.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("mqtt: marshal sample: %w", err)
	}
	if token := p.client.Publish(p.topicRaw, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: publish %s: %w", p.topicRaw, token.Error())
	}

	for i, v := range sample.Values {
		scalar := loadcell.Scalar{T: sample.T, Value: v}
		payload, err := json.Marshal(scalar)
		if err != nil {
			return fmt.Errorf("mqtt: marshal scalar: %w", err)
		}
		topic := p.ChannelTopic(i)
		if token := p.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("mqtt: publish %s: %w", topic, token.Error())
		}
	}
	return nil
}

// Close is a no-op; the MQTT client is owned and disconnected by the app.
func (p *MQTTPublisher) Close() error {
	return nil
}
