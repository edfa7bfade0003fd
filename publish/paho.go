//go:build !tinygo

package publish

import (
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Paho publishes with the Eclipse Paho client.  It reconnects on its own.
type Paho struct {
	client mqtt.Client
	cfg    Config
}

func NewPaho(cfg Config) (*Paho, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.User).
		SetPassword(cfg.Passwd).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("mqtt connection lost", "broker", cfg.Broker, "err", err)
		})
	p := &Paho{client: mqtt.NewClient(opts), cfg: cfg}
	tok := p.client.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	slog.Info("mqtt connected", "broker", cfg.Broker, "client", cfg.ClientID)
	return p, nil
}

// Publish sends payload at QoS 0, not retained
func (p *Paho) Publish(topic string, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := p.client.Publish(topic, 0, false, payload)
	if !tok.WaitTimeout(p.cfg.Timeout) {
		return ErrTimeout
	}
	return tok.Error()
}

func (p *Paho) Close() {
	p.client.Disconnect(250)
}
