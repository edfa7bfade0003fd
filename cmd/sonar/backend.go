package main

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar/timer/periphio"
	"github.com/merliot/sonar/timer/sim"
	"github.com/merliot/sonar/ultrasonic"
)

// openSensor builds a sensor on the configured backend.  The returned func
// releases the backend.
func openSensor(cfg *Config, log *slog.Logger) (*ultrasonic.Sensor, func(), error) {
	switch cfg.Backend {
	case backendPeriph:
		pulse, capture, err := periphio.Open(cfg.TriggerPin, cfg.EchoPin)
		if err != nil {
			return nil, nil, err
		}
		log.Info("periph sensor", "trigger", cfg.TriggerPin, "echo", cfg.EchoPin)
		closer := func() {
			pulse.Close()
			capture.Close()
		}
		return ultrasonic.New(pulse, capture), closer, nil
	default:
		clock := clockwork.NewRealClock()
		pulse := sim.NewPulse(clock)
		capture := sim.NewCapture(clock)
		target := sim.NewTarget(clock, capture, uint32(cfg.SimDistance))
		target.Attach(pulse)
		log.Info("simulated sensor", "distance", cfg.SimDistance)
		return ultrasonic.New(pulse, capture, ultrasonic.WithClock(clock)), pulse.Close, nil
	}
}
