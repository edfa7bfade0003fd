package sim

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer"
)

const (
	// DefaultLatency is the delay from the end of the trigger pulse to the
	// start of the echo pulse.
	DefaultLatency = 200 * time.Microsecond

	// microseconds of echo per centimeter of range, round trip
	usPerCentimeter = 59
)

// Target simulates the sensor and the object in front of it.  Each trigger
// pulse produces one echo pulse on the capture input whose width encodes the
// distance.  A silent target produces no echo at all.
type Target struct {
	clock   clockwork.Clock
	capture *Capture
	latency time.Duration
	width   atomic.Int64 // echo width in ns, 0 is silent
	echoes  atomic.Uint64
}

func NewTarget(clock clockwork.Clock, capture *Capture, cm uint32) *Target {
	t := &Target{
		clock:   clock,
		capture: capture,
		latency: DefaultLatency,
	}
	t.SetDistance(cm)
	return t
}

// SetDistance moves the object to cm centimeters
func (t *Target) SetDistance(cm uint32) {
	t.SetEcho(time.Duration(cm) * usPerCentimeter * time.Microsecond)
}

// SetEcho sets the raw echo pulse width.  Widths beyond the capture span
// wrap in the capture timer, just like the hardware.
func (t *Target) SetEcho(width time.Duration) {
	t.width.Store(int64(width))
}

// Silence removes the object: no more echoes
func (t *Target) Silence() {
	t.width.Store(0)
}

// Echoes returns the number of echo pulses produced
func (t *Target) Echoes() uint64 {
	return t.echoes.Load()
}

// Attach makes the target answer every pulse from p
func (t *Target) Attach(p *Pulse) {
	p.OnPulse(t.Ping)
}

// Ping answers a trigger pulse that rose at rise and lasted width.  Both echo
// edges are delivered together once the falling edge time has passed, with
// their true timestamps, so scheduling delay does not skew the capture.
func (t *Target) Ping(rise time.Time, width time.Duration) {
	echo := time.Duration(t.width.Load())
	if echo <= 0 {
		return
	}
	start := rise.Add(width + t.latency)
	end := start.Add(echo)
	t.clock.AfterFunc(end.Sub(t.clock.Now()), func() {
		t.echoes.Add(1)
		t.capture.Edge(start, timer.Rising)
		t.capture.Edge(end, timer.Falling)
	})
}
