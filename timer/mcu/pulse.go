//go:build tinygo

// Package mcu implements the timer capabilities on TinyGo targets.  The
// trigger is a hardware PWM slice running at the pulse period, and the echo
// is timed from a pin-change interrupt against the runtime tick counter.
package mcu

import (
	"machine"

	"github.com/merliot/sonar/timer"
)

// PWM is the subset of a TinyGo PWM peripheral used for the trigger
type PWM interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// PulseOutput runs a trigger pulse train from a PWM channel
type PulseOutput struct {
	pwm        PWM
	pin        machine.Pin
	ch         uint8
	cfg        timer.PulseConfig
	configured bool
	enabled    bool
}

func NewPulseOutput(pwm PWM, pin machine.Pin) *PulseOutput {
	return &PulseOutput{pwm: pwm, pin: pin}
}

// Configure programs the PWM period with a zero duty cycle, so the pin stays
// low until Enable.
func (p *PulseOutput) Configure(cfg timer.PulseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	period := uint64(cfg.PeriodDuration().Nanoseconds())
	if err := p.pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
		return err
	}
	ch, err := p.pwm.Channel(p.pin)
	if err != nil {
		return err
	}
	p.ch = ch
	p.cfg = cfg
	p.configured = true
	if p.enabled {
		p.pwm.Set(p.ch, p.duty())
	} else {
		p.pwm.Set(p.ch, 0)
	}
	return nil
}

// Enable sets the duty cycle.  The counter has been running since Configure
// and the new compare value is latched at its next wrap, so the first pulse
// comes anywhere up to one period later.
func (p *PulseOutput) Enable() error {
	if !p.configured {
		return timer.ErrNotConfigured
	}
	if p.enabled {
		return nil
	}
	p.pwm.Set(p.ch, p.duty())
	p.enabled = true
	return nil
}

func (p *PulseOutput) Enabled() bool {
	return p.enabled
}

func (p *PulseOutput) duty() uint32 {
	top := uint64(p.pwm.Top())
	d := top * uint64(p.cfg.Width) / uint64(p.cfg.Period)
	if d == 0 {
		d = 1
	}
	return uint32(d)
}
