// Package timer describes the two hardware timer capabilities an ultrasonic
// ranger needs: a periodic pulse output to fire the sensor's trigger, and an
// edge-triggered capture timer that measures the echo pulse width.
//
// Backends bind pins at construction time.  The ranging code only ever talks
// to these interfaces, never to registers.
package timer

import "time"

// Edge selects a signal transition.
type Edge uint8

const (
	Rising Edge = iota + 1
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "none"
}

// PulseConfig configures a periodic pulse: the output is active for Width
// ticks once every Period ticks.
type PulseConfig struct {
	Width  uint32
	Period uint32
	Tick   time.Duration
}

// Validate checks the pulse fits inside its period.
func (c PulseConfig) Validate() error {
	if c.Tick <= 0 || c.Period == 0 || c.Width == 0 || c.Width >= c.Period {
		return ErrInvalidConfig
	}
	return nil
}

// WidthDuration returns the active time of one pulse
func (c PulseConfig) WidthDuration() time.Duration {
	return time.Duration(c.Width) * c.Tick
}

// PeriodDuration returns the pulse repetition period
func (c PulseConfig) PeriodDuration() time.Duration {
	return time.Duration(c.Period) * c.Tick
}

// CaptureConfig configures a free-running counter that is zeroed on
// ResetEdge and copied into the capture register on CaptureEdge.  The counter
// wraps after MaxTicks.
type CaptureConfig struct {
	ResetEdge   Edge
	CaptureEdge Edge
	Tick        time.Duration
	MaxTicks    uint16
}

// Validate checks the capture configuration.
func (c CaptureConfig) Validate() error {
	if c.Tick <= 0 || c.MaxTicks == 0 {
		return ErrInvalidConfig
	}
	if c.ResetEdge == c.CaptureEdge || c.ResetEdge == 0 || c.CaptureEdge == 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Wrap folds an elapsed time into the counter span, the way a hardware
// counter silently rolls over.
func (c CaptureConfig) Wrap(elapsed time.Duration) uint16 {
	if elapsed < 0 {
		return 0
	}
	ticks := uint64(elapsed / c.Tick)
	return uint16(ticks % (uint64(c.MaxTicks) + 1))
}

// PulseOutput drives a pin with a fixed-width periodic pulse.
type PulseOutput interface {
	// Configure sets up the pulse train and leaves the output disabled.
	// Calling it again with the same config is harmless.
	Configure(PulseConfig) error
	// Enable starts the pulse train.  The first pulse appears after one
	// full period.  Enabling a running output is a no-op.
	Enable() error
	// Enabled reports whether the pulse train is running
	Enabled() bool
}

// EdgeCapture is a reset-on-one-edge, capture-on-the-other counter with a
// capture-complete interrupt.
type EdgeCapture interface {
	Configure(CaptureConfig) error
	// SetHandler registers the function run in interrupt context when a
	// capture completes.  It must be short and must not block.
	SetHandler(func())
	// Enable starts the counter and arms the capture interrupt.
	Enable(priority uint8) error
	// ReadCapture returns the capture register.  Reading clears the
	// capture-pending condition.
	ReadCapture() uint16
	// CapturePending reports a completed capture that has not been read.
	CapturePending() bool
}
