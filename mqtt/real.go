package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"ringer/log"
	"ringer/ring"
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string
}

// NewRealPublisher connects to broker. A retained SHUTDOWN will is left
// with the broker so subscribers learn when ringer dies uncleanly.
func NewRealPublisher(broker, clientID, prefix string) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	p := &RealPublisher{prefix: prefix}
	connected := false
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(p.topic(TopicSystem), will, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("mqtt connection lost: %v", err)
		}).
		SetOnConnectHandler(func(paho.Client) {
			if connected {
				log.Info("mqtt reconnected")
				p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
			}
			connected = true
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) topic(suffix string) string {
	return p.prefix + "/" + suffix
}

func (p *RealPublisher) Publish(event ring.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0, not retained: a missed ring event is stale by the time it lands
	return p.send(p.topic(TopicRing), 0, false, payload)
}

func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(p.topic(TopicSystem), 1, true, payload)
}

func (p *RealPublisher) PublishSchedule(entries []ScheduleEntry) error {
	payload, err := FormatSchedulePayload(entries)
	if err != nil {
		return fmt.Errorf("format schedule payload: %w", err)
	}
	return p.send(p.topic(TopicSchedule), 1, true, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
