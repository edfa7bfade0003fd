package sonar

import (
	"log/slog"
)

var defaultMaxSockets = 200

// Bus is a logical packet broadcast bus.  Packets arrive on sockets connected
// to the bus.  A received packet can be broadcast to the other sockets, or
// replied back to sender.  A socket has a tag, and the bus segregates the
// sockets by tag.  Packets arriving on a tagged socket will be broadcast only
// to other sockets with same tag.  Think of a tag as a VLAN.  The empty tag ""
// is the default tag on the bus.
type Bus struct {
	name       string
	socketsMu  rwMutex
	sockets    map[Socketer]bool
	socketQ    chan bool
	handlersMu rwMutex
	handlers   map[string]func(*Packet)
	connect    func(Socketer)
	disconnect func(Socketer)
}

// NewBus returns a new bus with connect and disconnect callbacks
func NewBus(name string, connect, disconnect func(Socketer)) *Bus {
	if connect == nil {
		connect = func(Socketer) { /* don't notify */ }
	}
	if disconnect == nil {
		disconnect = func(Socketer) { /* don't notify */ }
	}
	return &Bus{
		name:       name,
		sockets:    make(map[Socketer]bool),
		socketQ:    make(chan bool, defaultMaxSockets),
		handlers:   make(map[string]func(*Packet)),
		connect:    connect,
		disconnect: disconnect,
	}
}

// Handle sets the packet handler for a socket tag.  It returns false if the
// tag already has a handler.
func (b *Bus) Handle(tag string, handler func(*Packet)) bool {
	if handler == nil {
		panic("handler is nil")
	}
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	if _, ok := b.handlers[tag]; !ok {
		b.handlers[tag] = handler
		return true
	}
	return false
}

// Unhandle removes the packet handler for the socket tag
func (b *Bus) Unhandle(tag string) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	delete(b.handlers, tag)
}

func (b *Bus) Name() string {
	return b.name
}

// MaxSockets sets the maximum number of socket connections that can be made to
// the bus.  Any socket connection attempts past the maximum will block until
// other sockets drop.  Call it before any socket is plugged in.
func (b *Bus) MaxSockets(maxSockets int) {
	b.socketQ = make(chan bool, maxSockets)
}

// Sockets returns the number of sockets plugged into the bus
func (b *Bus) Sockets() int {
	b.socketsMu.RLock()
	defer b.socketsMu.RUnlock()
	return len(b.sockets)
}

// plugin the socket to the bus
func (b *Bus) plugin(s Socketer) {
	slog.Debug("plugin", "bus", b.name, "socket", s)

	// block here when socketQ is full
	b.socketQ <- true

	b.socketsMu.Lock()
	b.sockets[s] = true
	b.socketsMu.Unlock()

	b.connect(s)
}

// unplug the socket from the bus
func (b *Bus) unplug(s Socketer) {
	slog.Debug("unplug", "bus", b.name, "socket", s)

	b.socketsMu.Lock()
	delete(b.sockets, s)
	b.socketsMu.Unlock()

	b.disconnect(s)

	// release one from the socketQ
	<-b.socketQ
}

// broadcast packet to all sockets with matching tag, skipping the source
// socket
func (b *Bus) broadcast(pkt *Packet) {
	b.socketsMu.RLock()
	defer b.socketsMu.RUnlock()
	for sock := range b.sockets {
		if pkt.src != sock &&
			pkt.src.Tag() == sock.Tag() &&
			sock.TestFlag(SocketFlagBcast) {
			slog.Debug("bcast", "src", pkt.src, "dst", sock, "packet", pkt)
			if err := sock.Send(pkt); err != nil {
				slog.Warn("bcast send failed", "dst", sock, "err", err)
			}
		}
	}
}

// receive will call the packet handler for the source socket's tag
func (b *Bus) receive(pkt *Packet) {
	slog.Debug("recv", "src", pkt.src, "packet", pkt)
	b.handlersMu.RLock()
	handler, ok := b.handlers[pkt.src.Tag()]
	b.handlersMu.RUnlock()
	if ok {
		handler(pkt)
	}
}
