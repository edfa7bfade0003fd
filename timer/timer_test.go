package timer

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestPulseConfigValidate(t *testing.T) {
	c := qt.New(t)

	good := PulseConfig{Width: 10, Period: 100000, Tick: time.Microsecond}
	c.Assert(good.Validate(), qt.IsNil)
	c.Assert(good.WidthDuration(), qt.Equals, 10*time.Microsecond)
	c.Assert(good.PeriodDuration(), qt.Equals, 100*time.Millisecond)

	for _, bad := range []PulseConfig{
		{Width: 10, Period: 100000},
		{Width: 0, Period: 100000, Tick: time.Microsecond},
		{Width: 10, Period: 10, Tick: time.Microsecond},
		{Width: 10, Period: 0, Tick: time.Microsecond},
	} {
		c.Check(bad.Validate(), qt.Equals, ErrInvalidConfig, qt.Commentf("%+v", bad))
	}
}

func TestCaptureConfigValidate(t *testing.T) {
	c := qt.New(t)

	good := CaptureConfig{ResetEdge: Rising, CaptureEdge: Falling, Tick: time.Microsecond, MaxTicks: 0xFFFF}
	c.Assert(good.Validate(), qt.IsNil)

	same := good
	same.CaptureEdge = Rising
	c.Assert(same.Validate(), qt.Equals, ErrInvalidConfig)

	noTick := good
	noTick.Tick = 0
	c.Assert(noTick.Validate(), qt.Equals, ErrInvalidConfig)

	noEdge := good
	noEdge.ResetEdge = 0
	c.Assert(noEdge.Validate(), qt.Equals, ErrInvalidConfig)
}

func TestCaptureWrap(t *testing.T) {
	c := qt.New(t)

	cfg := CaptureConfig{ResetEdge: Rising, CaptureEdge: Falling, Tick: time.Microsecond, MaxTicks: 0xFFFF}
	c.Assert(cfg.Wrap(2950*time.Microsecond), qt.Equals, uint16(2950))
	c.Assert(cfg.Wrap(65535*time.Microsecond), qt.Equals, uint16(65535))
	// one tick past the span rolls over to zero
	c.Assert(cfg.Wrap(65536*time.Microsecond), qt.Equals, uint16(0))
	c.Assert(cfg.Wrap(70000*time.Microsecond), qt.Equals, uint16(70000-65536))
	c.Assert(cfg.Wrap(-time.Second), qt.Equals, uint16(0))

	small := CaptureConfig{ResetEdge: Rising, CaptureEdge: Falling, Tick: time.Microsecond, MaxTicks: 99}
	c.Assert(small.Wrap(150*time.Microsecond), qt.Equals, uint16(50))
}

func TestEdgeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(Rising.String(), qt.Equals, "rising")
	c.Assert(Falling.String(), qt.Equals, "falling")
	c.Assert(Edge(0).String(), qt.Equals, "none")
}
