package publish

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	mqtt "github.com/soypat/natiu-mqtt"
)

var errClosed = errors.New("publisher closed")

// Natiu publishes over a caller-supplied connection, like a TinyGo netdev
// socket.  It does not reconnect; on error dial a new conn and start over.
type Natiu struct {
	mu     sync.Mutex
	client *mqtt.Client
	conn   net.Conn
	flags  mqtt.PacketFlags
	packet uint16
}

func NewNatiu(ctx context.Context, conn net.Conn, cfg Config) (*Natiu, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 512)},
	})
	var vc mqtt.VariablesConnect
	vc.SetDefaultMQTT([]byte(cfg.ClientID))
	if cfg.User != "" {
		vc.Username = []byte(cfg.User)
		vc.Password = []byte(cfg.Passwd)
	}
	if err := client.Connect(ctx, conn, &vc); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, err
	}
	return &Natiu{client: client, conn: conn, flags: flags}, nil
}

// Publish sends payload at QoS 0, not retained
func (n *Natiu) Publish(topic string, payload []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.client.IsConnected() {
		return ErrNotConnected
	}
	n.packet++
	vp := mqtt.VariablesPublish{
		TopicName:        []byte(topic),
		PacketIdentifier: n.packet,
	}
	return n.client.PublishPayload(n.flags, vp, payload)
}

func (n *Natiu) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.client.Disconnect(errClosed)
	return n.conn.Close()
}
