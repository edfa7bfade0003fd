package ultrasonic

import (
	"sync/atomic"

	"github.com/merliot/sonar/timer"
)

// Echo owns the capture timer.  The counter is zeroed by the hardware on the
// echo's rising edge and snapshotted on its falling edge, so the capture
// register holds the echo width in ticks with no software between edges.
type Echo struct {
	capture timer.EdgeCapture
	cfg     timer.CaptureConfig
	cell    *Cell
	armed   atomic.Bool
}

func newEcho(capture timer.EdgeCapture, cell *Cell) Echo {
	return Echo{
		capture: capture,
		cell:    cell,
		cfg: timer.CaptureConfig{
			ResetEdge:   timer.Rising,
			CaptureEdge: timer.Falling,
			Tick:        Tick,
			MaxTicks:    MaxTicks,
		},
	}
}

// Init configures the capture timer, registers the interrupt handler, and
// starts the counter.  Later calls do nothing.
func (e *Echo) Init() error {
	if e.armed.Load() {
		return nil
	}
	if err := e.capture.Configure(e.cfg); err != nil {
		return err
	}
	e.capture.SetHandler(e.InterruptHandler)
	if err := e.capture.Enable(InterruptPriority); err != nil {
		return err
	}
	e.armed.Store(true)
	return nil
}

// InterruptHandler runs in interrupt context on capture-complete.  One
// register read, one store.
//
//go:noinline
func (e *Echo) InterruptHandler() {
	if !e.capture.CapturePending() {
		return
	}
	e.cell.Store(e.capture.ReadCapture())
}

// Armed reports whether Init has run
func (e *Echo) Armed() bool {
	return e.armed.Load()
}
