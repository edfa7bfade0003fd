package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer"
)

// Capture is a simulated reset-on-rise / capture-on-fall timer.  The counter
// is derived from the clock: its value is the time since the last reset edge,
// in ticks, wrapped to the configured span.
type Capture struct {
	clock      clockwork.Clock
	mu         sync.Mutex
	cfg        timer.CaptureConfig
	configured bool
	enabled    bool
	priority   uint8
	resetAt    time.Time
	ccr        uint16
	pending    bool
	handler    func()

	// one interrupt at a time, like a single core
	isr      sync.Mutex
	captures atomic.Uint64
}

func NewCapture(clock clockwork.Clock) *Capture {
	return &Capture{clock: clock}
}

func (c *Capture) Configure(cfg timer.CaptureConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.configured = true
	return nil
}

func (c *Capture) SetHandler(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = f
}

func (c *Capture) Enable(priority uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return timer.ErrNotConfigured
	}
	if !c.enabled {
		c.enabled = true
		c.resetAt = c.clock.Now()
	}
	c.priority = priority
	return nil
}

func (c *Capture) ReadCapture() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	return c.ccr
}

func (c *Capture) CapturePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Priority returns the interrupt priority given to Enable
func (c *Capture) Priority() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

// Count returns the live counter value
func (c *Capture) Count() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return 0
	}
	return c.cfg.Wrap(c.clock.Now().Sub(c.resetAt))
}

// Captures returns the number of completed captures
func (c *Capture) Captures() uint64 {
	return c.captures.Load()
}

// Edge applies an input transition that happened at time at.  Edges before
// Enable are ignored, as the counter is not running.
func (c *Capture) Edge(at time.Time, e timer.Edge) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	if e == c.cfg.ResetEdge {
		c.resetAt = at
	}
	captured := e == c.cfg.CaptureEdge
	var fire func()
	if captured {
		c.ccr = c.cfg.Wrap(at.Sub(c.resetAt))
		c.pending = true
		fire = c.handler
	}
	c.mu.Unlock()

	if captured {
		c.captures.Add(1)
	}
	if fire != nil {
		c.interrupt(fire)
	}
}

// Rise applies a rising edge now
func (c *Capture) Rise() {
	c.Edge(c.clock.Now(), timer.Rising)
}

// Fall applies a falling edge now
func (c *Capture) Fall() {
	c.Edge(c.clock.Now(), timer.Falling)
}

// Inject completes a capture of ticks directly, as if an echo of exactly
// that width had just ended.
func (c *Capture) Inject(ticks uint16) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.ccr = ticks
	c.pending = true
	fire := c.handler
	c.mu.Unlock()

	c.captures.Add(1)
	if fire != nil {
		c.interrupt(fire)
	}
}

// Interrupt runs the handler without completing a capture, the way a shared
// vector fires for some other source.
func (c *Capture) Interrupt() {
	c.mu.Lock()
	fire := c.handler
	c.mu.Unlock()
	if fire != nil {
		c.interrupt(fire)
	}
}

func (c *Capture) interrupt(f func()) {
	c.isr.Lock()
	defer c.isr.Unlock()
	f()
}
