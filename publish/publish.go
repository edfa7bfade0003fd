// Package publish sends ranger readings to an MQTT broker.  Paho is the host
// client; Natiu is a small allocation-free client for firmware, or for any
// net.Conn the caller already has.
package publish

import (
	"errors"
	"time"
)

const defaultTimeout = 5 * time.Second

var (
	ErrTimeout      = errors.New("mqtt: timed out")
	ErrNotConnected = errors.New("mqtt: not connected")
)

type Config struct {
	Broker   string // tcp://host:1883
	ClientID string
	User     string
	Passwd   string
	Timeout  time.Duration
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
