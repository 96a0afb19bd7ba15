package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BTBurke/bathctl"
	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/BTBurke/bathctl/pkg/logging"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// ConnectMQTT connects to broker as clientID.  The password may be empty.
func ConnectMQTT(broker string, clientID string, password string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if password != "" {
		opts.SetUsername("bathctl").SetPassword(password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}

// Publisher forwards run events to an MQTT broker as JSON.  Each event type has its own
// topic under the prefix, e.g. bathctl/state_change.  State changes are retained so a new
// subscriber sees the current state.
type Publisher struct {
	client mqtt.Client
	prefix string
	log    *logging.Logger
}

// NewPublisher returns a publisher sending events under prefix
func NewPublisher(client mqtt.Client, prefix string, log *logging.Logger) *Publisher {
	if log == nil {
		log = logging.Discard()
	}
	return &Publisher{client: client, prefix: prefix, log: log}
}

// Consume publishes events until the channel closes, then signals the bus
func (p *Publisher) Consume(events <-chan eventbus.Event, done eventbus.ShutdownFunc) {
	for e := range events {
		if err := p.Publish(e); err != nil {
			p.log.Warn("mqtt publish failed", "event", e.EventType, "err", err)
		}
	}
	done()
}

// Publish sends a single event and waits for the broker to acknowledge it
func (p *Publisher) Publish(e eventbus.Event) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	retained := e.EventType == bathctl.StateChanged
	token := p.client.Publish(p.prefix+"/"+string(e.EventType), 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", p.prefix)
	}
	return token.Error()
}
