// Package periphio implements the timer capabilities on Linux GPIO through
// periph.io.  There is no hardware timer chaining on a GPIO line, so the
// pulse train is bit-banged from a goroutine and the capture counter is the
// wall-clock time between edges reported by WaitForEdge.  Expect tens of
// microseconds of jitter.
package periphio

import (
	"fmt"
	"sync"
	"time"

	"github.com/merliot/sonar/timer"
	"periph.io/x/periph/conn/gpio"
)

// PulseOutput toggles an output pin to produce the trigger pulse train
type PulseOutput struct {
	pin        gpio.PinOut
	mu         sync.Mutex
	cfg        timer.PulseConfig
	configured bool
	enabled    bool
	stop       chan struct{}
	done       chan struct{}
}

func NewPulseOutput(pin gpio.PinOut) *PulseOutput {
	return &PulseOutput{pin: pin}
}

func (p *PulseOutput) Configure(cfg timer.PulseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		if err := p.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("trigger pin %s: %w", p.pin, err)
		}
	}
	p.cfg = cfg
	p.configured = true
	return nil
}

func (p *PulseOutput) Enable() error {
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
	p.done = make(chan struct{})
	go p.run(p.cfg, p.stop, p.done)
	return nil
}

func (p *PulseOutput) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Close stops the pulse train and drives the pin low
func (p *PulseOutput) Close() error {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return nil
	}
	close(p.stop)
	done := p.done
	p.enabled = false
	p.mu.Unlock()
	<-done
	return p.pin.Out(gpio.Low)
}

func (p *PulseOutput) run(cfg timer.PulseConfig, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(cfg.PeriodDuration())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.pin.Out(gpio.High)
			time.Sleep(cfg.WidthDuration())
			p.pin.Out(gpio.Low)
		}
	}
}
