// Package sim provides software stand-ins for the trigger and capture timers,
// and a simulated ultrasonic sensor that answers trigger pulses with echoes.
// Time comes from a clockwork.Clock so tests can run on a fake clock.
package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer"
)

// Pulse is a simulated periodic pulse output
type Pulse struct {
	clock      clockwork.Clock
	mu         sync.Mutex
	cfg        timer.PulseConfig
	configured bool
	enabled    bool
	stop       chan struct{}
	listeners  []func(rise time.Time, width time.Duration)
	pulses     atomic.Uint64
}

func NewPulse(clock clockwork.Clock) *Pulse {
	return &Pulse{clock: clock}
}

// Configure latches the pulse config.  Like a preloaded hardware register it
// does not touch a running generator's enable state.
func (p *Pulse) Configure(cfg timer.PulseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.configured = true
	return nil
}

func (p *Pulse) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return timer.ErrNotConfigured
	}
	if p.enabled {
		return nil
	}
	p.enabled = true
	p.stop = make(chan struct{})
	// ticker is created here, not in the goroutine, so the first pulse is
	// exactly one period after Enable
	ticker := p.clock.NewTicker(p.cfg.PeriodDuration())
	go p.run(ticker, p.cfg.WidthDuration(), p.stop)
	return nil
}

func (p *Pulse) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// OnPulse registers f to be called with the rising edge time and width of
// every pulse emitted.
func (p *Pulse) OnPulse(f func(rise time.Time, width time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, f)
}

// Pulses returns the number of pulses emitted so far
func (p *Pulse) Pulses() uint64 {
	return p.pulses.Load()
}

// Close stops the generator.  Hardware has no such thing; it exists so tests
// and simulations can shut down cleanly.
func (p *Pulse) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		close(p.stop)
		p.enabled = false
	}
}

func (p *Pulse) run(ticker clockwork.Ticker, width time.Duration, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case rise := <-ticker.Chan():
			p.pulses.Add(1)
			p.mu.Lock()
			listeners := p.listeners
			p.mu.Unlock()
			for _, f := range listeners {
				f(rise, width)
			}
		}
	}
}
