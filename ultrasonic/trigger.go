package ultrasonic

import "github.com/merliot/sonar/timer"

// Trigger fires the sensor: a TriggerWidth-tick pulse every TriggerPeriod
// ticks, free-running once started.  There is no stop.
type Trigger struct {
	out timer.PulseOutput
	cfg timer.PulseConfig
}

func newTrigger(out timer.PulseOutput) Trigger {
	return Trigger{
		out: out,
		cfg: timer.PulseConfig{
			Width:  TriggerWidth,
			Period: TriggerPeriod,
			Tick:   Tick,
		},
	}
}

// Init configures the pulse output and leaves it disabled
func (t *Trigger) Init() error {
	return t.out.Configure(t.cfg)
}

// Start enables the pulse train.  The first pulse comes one period later.
// Starting a running trigger leaves it running.
func (t *Trigger) Start() error {
	return t.out.Enable()
}

// Running reports whether the pulse train is enabled
func (t *Trigger) Running() bool {
	return t.out.Enabled()
}
