//go:build tinygo

package mcu

import (
	"machine"
	"runtime/volatile"
	"time"
	_ "unsafe"

	"github.com/merliot/sonar/timer"
)

//go:linkname ticks runtime.ticks
func ticks() uint64

//go:linkname ticksToNanoseconds runtime.ticksToNanoseconds
func ticksToNanoseconds(ticks uint64) int64

// Capture times the echo pin from a pin-change interrupt.  The counter is
// the runtime tick clock scaled to the configured tick.
type Capture struct {
	pin        machine.Pin
	cfg        timer.CaptureConfig
	configured bool
	enabled    bool
	resetAt    uint64
	ccr        uint16
	pending    uint8
	handler    func()
}

func NewCapture(pin machine.Pin) *Capture {
	return &Capture{pin: pin}
}

func (c *Capture) Configure(cfg timer.CaptureConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	c.cfg = cfg
	c.configured = true
	return nil
}

func (c *Capture) SetHandler(f func()) {
	c.handler = f
}

// Enable attaches the pin interrupt.  Pin-change interrupts share one
// vector on most chips, so priority is not configurable here and is ignored.
func (c *Capture) Enable(priority uint8) error {
	if !c.configured {
		return timer.ErrNotConfigured
	}
	if c.enabled {
		return nil
	}
	volatile.StoreUint64(&c.resetAt, ticks())
	if err := c.pin.SetInterrupt(machine.PinToggle, c.isr); err != nil {
		return err
	}
	c.enabled = true
	return nil
}

func (c *Capture) ReadCapture() uint16 {
	volatile.StoreUint8(&c.pending, 0)
	return volatile.LoadUint16(&c.ccr)
}

func (c *Capture) CapturePending() bool {
	return volatile.LoadUint8(&c.pending) != 0
}

//go:noinline
func (c *Capture) isr(pin machine.Pin) {
	now := ticks()
	e := timer.Falling
	if pin.Get() {
		e = timer.Rising
	}
	if e == c.cfg.ResetEdge {
		volatile.StoreUint64(&c.resetAt, now)
	}
	if e != c.cfg.CaptureEdge {
		return
	}
	elapsed := ticksToNanoseconds(now - volatile.LoadUint64(&c.resetAt))
	volatile.StoreUint16(&c.ccr, c.cfg.Wrap(time.Duration(elapsed)))
	volatile.StoreUint8(&c.pending, 1)
	if c.handler != nil {
		c.handler()
	}
}
