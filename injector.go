package sonar

// Injector is a socket for packets that originate inside the device, like
// the periodic readings from a Thing's Run loop.
type Injector struct {
	socket
	mu mutex
}

func NewInjector(name string, bus *Bus) *Injector {
	i := &Injector{socket: socket{name: name, bus: bus}}
	bus.plugin(i)
	return i
}

// Inject delivers pkt to the bus as if it arrived on this socket
func (i *Injector) Inject(pkt *Packet) {
	i.mu.Lock()
	defer i.mu.Unlock()
	pkt.bus, pkt.src = i.bus, i
	i.bus.receive(pkt)
}
