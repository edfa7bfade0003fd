package ultrasonic

import (
	"context"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer"
	"github.com/merliot/sonar/timer/sim"
)

func newSimSensor(c *qt.C, clock clockwork.Clock) (*Sensor, *sim.Pulse, *sim.Capture) {
	pulse := sim.NewPulse(clock)
	capture := sim.NewCapture(clock)
	s := New(pulse, capture, WithClock(clock), WithPollInterval(100*time.Microsecond))
	c.Assert(s.InitTrigger(), qt.IsNil)
	c.Assert(s.InitEcho(), qt.IsNil)
	c.Cleanup(pulse.Close)
	return s, pulse, capture
}

func TestCentimeters(t *testing.T) {
	c := qt.New(t)
	c.Assert(Centimeters(0), qt.Equals, uint32(0))
	c.Assert(Centimeters(58), qt.Equals, uint32(0))
	c.Assert(Centimeters(59), qt.Equals, uint32(1))
	c.Assert(Centimeters(590), qt.Equals, uint32(10))
	c.Assert(Centimeters(2950), qt.Equals, uint32(50))
	c.Assert(Centimeters(65535), qt.Equals, uint32(1110))

	for ticks := 0; ticks <= 0xFFFF; ticks++ {
		if got, want := Centimeters(uint16(ticks)), uint32(ticks/59); got != want {
			c.Fatalf("Centimeters(%d) = %d, want %d", ticks, got, want)
		}
	}
}

func TestSampleConversions(t *testing.T) {
	c := qt.New(t)
	s := Sample{Ticks: 2950, Generation: 3}
	c.Assert(s.Centimeters(), qt.Equals, uint32(50))
	c.Assert(s.Inches(), qt.Equals, uint32(19))
	c.Assert(s.Duration(), qt.Equals, 2950*time.Microsecond)
}

func TestReadBeforeAnyCapture(t *testing.T) {
	c := qt.New(t)
	s, _, _ := newSimSensor(c, clockwork.NewFakeClock())

	c.Assert(s.ReadSensor(), qt.Equals, uint32(0))
	_, ok := s.Latest()
	c.Assert(ok, qt.IsFalse)
	c.Assert(s.EchoPending(), qt.IsFalse)
}

func TestReadAfterCapture(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewFakeClock())

	capture.Inject(2950)
	c.Assert(s.EchoPending(), qt.IsTrue)
	c.Assert(s.ReadSensor(), qt.Equals, uint32(50))
	c.Assert(s.EchoPending(), qt.IsFalse)

	sample, ok := s.Latest()
	c.Assert(ok, qt.IsTrue)
	c.Assert(sample, qt.Equals, Sample{Ticks: 2950, Generation: 1})
}

func TestReadIsStaleNotZeroed(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewFakeClock())

	capture.Inject(590)
	first := s.ReadSensor()
	second := s.ReadSensor()
	c.Assert(first, qt.Equals, uint32(10))
	c.Assert(second, qt.Equals, first)
}

func TestReadArmsTrigger(t *testing.T) {
	c := qt.New(t)
	s, pulse, _ := newSimSensor(c, clockwork.NewFakeClock())

	c.Assert(pulse.Enabled(), qt.IsFalse)
	s.ReadSensor()
	c.Assert(pulse.Enabled(), qt.IsTrue)
	c.Assert(s.Running(), qt.IsTrue)
}

func TestStartTriggerTwice(t *testing.T) {
	c := qt.New(t)
	s, pulse, _ := newSimSensor(c, clockwork.NewFakeClock())

	c.Assert(s.StartTrigger(), qt.IsNil)
	c.Assert(s.StartTrigger(), qt.IsNil)
	c.Assert(pulse.Enabled(), qt.IsTrue)
}

func TestStartTriggerUninitialized(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewFakeClock()
	s := New(sim.NewPulse(clock), sim.NewCapture(clock))
	c.Assert(s.StartTrigger(), qt.Equals, timer.ErrNotConfigured)
	// still reads, silently
	c.Assert(s.ReadSensor(), qt.Equals, uint32(0))
}

func TestInitIdempotent(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewFakeClock())

	c.Assert(s.InitTrigger(), qt.IsNil)
	c.Assert(s.InitEcho(), qt.IsNil)
	c.Assert(s.Init(), qt.IsNil)
	c.Assert(capture.Priority(), qt.Equals, InterruptPriority)

	capture.Inject(118)
	c.Assert(s.ReadSensor(), qt.Equals, uint32(2))
}

func TestInterruptWithoutPending(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewFakeClock())

	capture.Inject(590)
	before, _ := s.Latest()

	capture.Interrupt()
	s.EchoInterruptHandler()

	after, _ := s.Latest()
	c.Assert(after, qt.Equals, before)
}

func TestEchoResetRiseCaptureFall(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewFakeClock()
	s, _, capture := newSimSensor(c, clock)

	clock.Advance(time.Second)
	capture.Rise()
	clock.Advance(1180 * time.Microsecond)
	capture.Fall()

	c.Assert(s.ReadSensor(), qt.Equals, uint32(20))
}

func TestConcurrentHandoff(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewFakeClock())

	const near, far = uint16(590), uint16(2950)
	capture.Inject(near)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				capture.Inject(far)
			} else {
				capture.Inject(near)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got := s.ReadSensor()
		if got != Centimeters(near) && got != Centimeters(far) {
			c.Fatalf("torn read: %d", got)
		}
		sample, _ := s.Latest()
		if sample.Ticks != near && sample.Ticks != far {
			c.Fatalf("torn sample: %+v", sample)
		}
	}
	wg.Wait()

	sample, _ := s.Latest()
	c.Assert(sample.Generation, qt.Equals, uint32(1001))
}

func TestAwaitNotInitialized(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewFakeClock()
	s := New(sim.NewPulse(clock), sim.NewCapture(clock))
	_, err := s.Await(context.Background(), time.Second)
	c.Assert(err, qt.Equals, ErrNotInitialized)
}

func TestAwaitWhileInitializing(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewRealClock()
	pulse := sim.NewPulse(clock)
	c.Cleanup(pulse.Close)
	s := New(pulse, sim.NewCapture(clock), WithPollInterval(100*time.Microsecond))

	done := make(chan error, 1)
	go func() { done <- s.Init() }()

	_, err := s.Await(context.Background(), 5*time.Millisecond)
	if err != ErrNotInitialized && err != ErrStale {
		c.Fatalf("unexpected error %v", err)
	}
	c.Assert(<-done, qt.IsNil)

	_, err = s.Await(context.Background(), 5*time.Millisecond)
	c.Assert(err, qt.Equals, ErrStale)
}

func TestAwaitFresh(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewRealClock())

	capture.Inject(590)
	s.ReadSensor()

	go func() {
		time.Sleep(5 * time.Millisecond)
		capture.Inject(2950)
	}()

	sample, err := s.Await(context.Background(), time.Second)
	c.Assert(err, qt.IsNil)
	c.Assert(sample.Centimeters(), qt.Equals, uint32(50))
	c.Assert(sample.Generation, qt.Equals, uint32(2))
	c.Assert(s.EchoPending(), qt.IsFalse)
}

func TestAwaitStale(t *testing.T) {
	c := qt.New(t)
	s, _, capture := newSimSensor(c, clockwork.NewRealClock())

	capture.Inject(590)
	sample, err := s.Await(context.Background(), 10*time.Millisecond)
	c.Assert(err, qt.Equals, ErrStale)
	c.Assert(sample, qt.Equals, Sample{Ticks: 590, Generation: 1})
}

func TestAwaitCanceled(t *testing.T) {
	c := qt.New(t)
	s, _, _ := newSimSensor(c, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Await(ctx, 0)
	c.Assert(err, qt.Equals, context.Canceled)
}

func TestAwaitSimulatedTarget(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewRealClock()
	s, pulse, capture := newSimSensor(c, clock)
	target := sim.NewTarget(clock, capture, 42)
	target.Attach(pulse)

	sample, err := s.Await(context.Background(), time.Second)
	c.Assert(err, qt.IsNil)
	c.Assert(sample.Centimeters(), qt.Equals, uint32(42))

	target.SetDistance(100)
	sample, err = s.Await(context.Background(), time.Second)
	c.Assert(err, qt.IsNil)
	c.Assert(sample.Centimeters(), qt.Equals, uint32(100))

	// out of range: the last good reading sticks
	target.Silence()
	_, err = s.Await(context.Background(), 250*time.Millisecond)
	c.Assert(err, qt.Equals, ErrStale)
	c.Assert(s.ReadSensor(), qt.Equals, uint32(100))
}
