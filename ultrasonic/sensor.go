// Package ultrasonic measures range with an HC-SR04 style ultrasonic sensor
// driven by two hardware timers: a periodic trigger pulse generator, and a
// capture timer that is reset by the echo's rising edge and captures on its
// falling edge.  An interrupt handler latches each capture into a Cell; the
// sampler converts the latched width into centimeters on demand.
//
// Typical use from a polling loop:
//
//	s := ultrasonic.New(pulse, capture)
//	s.InitTrigger()
//	s.InitEcho()
//	for {
//		if s.EchoPending() {
//			println(s.ReadSensor(), "cm")
//		}
//	}
package ultrasonic

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer"
)

const defaultPollInterval = time.Millisecond

// Sensor ties the trigger, the echo capture and the latched sample together.
type Sensor struct {
	trigger  Trigger
	echo     Echo
	cell     Cell
	consumed atomic.Uint32 // generation handed out by the last read
	clock    clockwork.Clock
	poll     time.Duration
}

type Option func(*Sensor)

// WithClock sets the clock used by Await
func WithClock(clock clockwork.Clock) Option {
	return func(s *Sensor) { s.clock = clock }
}

// WithPollInterval sets how often Await checks for a fresh sample
func WithPollInterval(d time.Duration) Option {
	return func(s *Sensor) {
		if d > 0 {
			s.poll = d
		}
	}
}

// New returns a sensor using out for the trigger and capture for the echo.
// Nothing touches the hardware until InitTrigger and InitEcho.
func New(out timer.PulseOutput, capture timer.EdgeCapture, opts ...Option) *Sensor {
	s := &Sensor{
		clock: clockwork.NewRealClock(),
		poll:  defaultPollInterval,
	}
	s.trigger = newTrigger(out)
	s.echo = newEcho(capture, &s.cell)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitTrigger configures the trigger generator, disabled
func (s *Sensor) InitTrigger() error {
	return s.trigger.Init()
}

// StartTrigger enables the trigger generator.  Safe to call repeatedly.
func (s *Sensor) StartTrigger() error {
	return s.trigger.Start()
}

// InitEcho configures the capture timer and hooks up EchoInterruptHandler
func (s *Sensor) InitEcho() error {
	return s.echo.Init()
}

// Init is InitTrigger followed by InitEcho
func (s *Sensor) Init() error {
	if err := s.InitTrigger(); err != nil {
		return err
	}
	return s.InitEcho()
}

// EchoInterruptHandler latches a completed capture.  Backends call it from
// interrupt context; it is exported for platforms that wire vectors by hand.
func (s *Sensor) EchoInterruptHandler() {
	s.echo.InterruptHandler()
}

// ReadSensor arms the trigger and returns the distance, in centimeters, of
// whatever echo is latched right now.  It does not wait: the value may be
// from an earlier cycle, and it is 0 if nothing was ever captured.  A
// missing echo looks like a far object (up to about 1110cm) or like the last
// good reading.
func (s *Sensor) ReadSensor() uint32 {
	// ignore the error; an unconfigured trigger just never fires
	s.trigger.Start()
	sample := s.cell.Load()
	s.consumed.Store(sample.Generation)
	return sample.Centimeters()
}

// EchoPending reports an echo captured after the one the last ReadSensor or
// Await returned.
func (s *Sensor) EchoPending() bool {
	return s.cell.Load().Generation != s.consumed.Load()
}

// Latest returns the latched sample with its generation, and false if no
// echo was ever captured.
func (s *Sensor) Latest() (Sample, bool) {
	return s.cell.Latest()
}

// Running reports whether the trigger generator is enabled
func (s *Sensor) Running() bool {
	return s.trigger.Running()
}

// Await arms the trigger and polls until an echo newer than the one latched
// on entry is captured.  It gives up with ErrStale after timeout, returning
// the stale sample, or with the context's error.  A timeout <= 0 waits on the
// context alone.
func (s *Sensor) Await(ctx context.Context, timeout time.Duration) (Sample, error) {
	if !s.echo.Armed() {
		return Sample{}, ErrNotInitialized
	}

	since := s.cell.Load().Generation

	if err := s.trigger.Start(); err != nil {
		return Sample{}, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := s.clock.NewTimer(timeout)
		defer t.Stop()
		expired = t.Chan()
	}

	ticker := s.clock.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		if sample := s.cell.Load(); sample.Generation != since {
			s.consumed.Store(sample.Generation)
			return sample, nil
		}
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case <-expired:
			return s.cell.Load(), ErrStale
		case <-ticker.Chan():
		}
	}
}
