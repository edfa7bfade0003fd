package sonar

import (
	"encoding/json"
	"log/slog"
)

// Packet is sent and received on a bus via a socket.  The message is a JSON
// object; its Path field routes it to a Thing's subscriber.
type Packet struct {
	bus     *Bus
	src     Socketer
	message []byte // payload
	err     error
}

// Bytes returns the packet message
func (p *Packet) Bytes() []byte {
	return p.message
}

func (p *Packet) String() string {
	return string(p.message)
}

// Err returns the error from the last Marshal or Unmarshal
func (p *Packet) Err() error {
	return p.err
}

// Reply sends the packet back to sender
func (p *Packet) Reply() *Packet {
	if p.err != nil {
		return p
	}
	if p.src == nil {
		slog.Warn("can't reply to sender: source is nil", "packet", p)
		return p
	}
	slog.Debug("reply", "src", p.src, "packet", p)
	if err := p.src.Send(p); err != nil {
		slog.Warn("reply failed", "src", p.src, "err", err)
	}
	return p
}

// Broadcast the packet to all other matching-tagged sockets on the bus.  The
// source socket is excluded.
func (p *Packet) Broadcast() *Packet {
	if p.err != nil {
		return p
	}
	if p.bus == nil || p.src == nil {
		slog.Warn("can't broadcast packet: not on a bus", "packet", p)
		return p
	}
	p.bus.broadcast(p)
	return p
}

// Unmarshal the packet message as JSON into v
func (p *Packet) Unmarshal(v any) *Packet {
	p.err = json.Unmarshal(p.message, v)
	if p.err != nil {
		slog.Warn("JSON unmarshal", "err", p.err)
	}
	return p
}

// Marshal the packet message as JSON from v
func (p *Packet) Marshal(v any) *Packet {
	p.message, p.err = json.Marshal(v)
	if p.err != nil {
		slog.Warn("JSON marshal", "err", p.err)
	}
	return p
}
