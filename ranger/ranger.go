// Package ranger is an ultrasonic range finder Thing.  It samples the sensor
// on a fixed period, pushes changed readings onto the bus, and hands every
// reading to an optional observer and publisher.
package ranger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar"
	"github.com/merliot/sonar/ultrasonic"
)

const (
	DefaultPeriod  = 500 * time.Millisecond
	DefaultTimeout = 250 * time.Millisecond
)

// Observer is told about every reading, fresh or stale
type Observer interface {
	Observe(id string, sample ultrasonic.Sample, fresh bool)
}

// Publisher sends a reading somewhere off the device, like an MQTT broker
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Reading is the payload handed to a Publisher
type Reading struct {
	Distance   uint32
	Ticks      uint16
	Generation uint32
	Fresh      bool
}

// Settings are what a ranger keeps across restarts.  Readings are not kept:
// a restarted ranger has no echo until it samples.
type Settings struct {
	Period  time.Duration
	Timeout time.Duration
}

type Ranger struct {
	sonar.Thing
	sonar.ThingMsg
	Reading
	Settings
	sensor    *ultrasonic.Sensor
	observer  Observer
	publisher Publisher
	clock     clockwork.Clock
	log       *slog.Logger
	reconfig  chan struct{}
}

type MsgConfig struct {
	Path    string
	Period  time.Duration
	Timeout time.Duration
}

type Option func(*Ranger)

func WithObserver(o Observer) Option {
	return func(r *Ranger) { r.observer = o }
}

func WithPublisher(p Publisher) Option {
	return func(r *Ranger) { r.publisher = p }
}

func WithClock(clock clockwork.Clock) Option {
	return func(r *Ranger) { r.clock = clock }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Ranger) { r.log = log }
}

// WithPeriod sets the sampling period and the fresh-echo timeout
func WithPeriod(period, timeout time.Duration) Option {
	return func(r *Ranger) {
		if period > 0 {
			r.Period = period
		}
		if timeout > 0 {
			r.Timeout = timeout
		}
	}
}

func New(id, model, name string, sensor *ultrasonic.Sensor, opts ...Option) *Ranger {
	r := &Ranger{
		Thing:    sonar.NewThing(id, model, name),
		Settings: Settings{Period: DefaultPeriod, Timeout: DefaultTimeout},
		sensor:   sensor,
		clock:    clockwork.NewRealClock(),
		log:      slog.Default(),
		reconfig: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Topic is where a ranger's readings are published
func Topic(id string) string {
	return "sonar/" + id + "/distance"
}

func (r *Ranger) Kept() any {
	return &r.Settings
}

// settings returns a copy of the settings with defaults standing in for
// anything not positive, like a hand-edited store file
func (r *Ranger) settings() Settings {
	r.Lock()
	s := r.Settings
	r.Unlock()
	if s.Period <= 0 {
		s.Period = DefaultPeriod
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// takeReading copies the reading out of a state or update message.
// Settings only change through config.
func (r *Ranger) takeReading(pkt *sonar.Packet) bool {
	var reading Reading
	if pkt.Unmarshal(&reading).Err() != nil {
		return false
	}
	r.Lock()
	r.Reading = reading
	r.Unlock()
	return true
}

func (r *Ranger) saveState(pkt *sonar.Packet) {
	r.takeReading(pkt)
}

func (r *Ranger) getState(pkt *sonar.Packet) {
	r.Lock()
	defer r.Unlock()
	r.Path = "state"
	pkt.Marshal(r).Reply()
}

func (r *Ranger) update(pkt *sonar.Packet) {
	if r.takeReading(pkt) {
		pkt.Broadcast()
	}
}

// read takes a sample right now and replies with the new state
func (r *Ranger) read(pkt *sonar.Packet) {
	r.sample(context.Background(), r.settings().Timeout)
	r.getState(pkt)
}

func (r *Ranger) config(pkt *sonar.Packet) {
	var msg MsgConfig
	if pkt.Unmarshal(&msg).Err() != nil {
		return
	}
	if msg.Period <= 0 || msg.Timeout <= 0 {
		r.log.Warn("ignoring bad config", "period", msg.Period, "timeout", msg.Timeout)
		return
	}
	r.Lock()
	r.Settings = Settings{Period: msg.Period, Timeout: msg.Timeout}
	err := sonar.ThingStore(r)
	r.Unlock()
	if err != nil {
		r.log.Warn("storing config", "err", err)
	}
	select {
	case r.reconfig <- struct{}{}:
	default:
	}
	r.getState(pkt)
}

func (r *Ranger) Subscribers() sonar.Subscribers {
	return sonar.Subscribers{
		"state":     r.saveState,
		"get/state": r.getState,
		"attached":  r.getState,
		"update":    r.update,
		"read":      r.read,
		"config":    r.config,
	}
}

// sample waits up to timeout for a fresh echo, falling back to whatever is
// latched.  It reports whether the reading changed.
func (r *Ranger) sample(ctx context.Context, timeout time.Duration) (Reading, bool, error) {
	s, err := r.sensor.Await(ctx, timeout)
	fresh := true
	switch {
	case err == nil:
	case errors.Is(err, ultrasonic.ErrStale):
		fresh = false
		r.sensor.ReadSensor()
		s, _ = r.sensor.Latest()
	default:
		return Reading{}, false, err
	}

	if r.observer != nil {
		r.observer.Observe(r.Id(), s, fresh)
	}

	reading := Reading{
		Distance:   s.Centimeters(),
		Ticks:      s.Ticks,
		Generation: s.Generation,
		Fresh:      fresh,
	}

	r.Lock()
	changed := reading != r.Reading
	r.Reading = reading
	r.Unlock()

	return reading, changed, nil
}

func (r *Ranger) publish(reading Reading) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(&reading)
	if err != nil {
		return
	}
	if err := r.publisher.Publish(Topic(r.Id()), payload); err != nil {
		r.log.Warn("publish", "topic", Topic(r.Id()), "err", err)
	}
}

// Run samples the sensor every Period until ctx is done
func (r *Ranger) Run(ctx context.Context, i *sonar.Injector) error {
	if err := r.sensor.Init(); err != nil {
		return err
	}

	settings := r.settings()
	period, timeout := settings.Period, settings.Timeout

	r.log.Info("ranging", "thing", r.Id(), "period", period, "timeout", timeout)

	ticker := r.clock.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.reconfig:
			settings = r.settings()
			period, timeout = settings.Period, settings.Timeout
			ticker.Reset(period)
			continue
		case <-ticker.Chan():
		}

		reading, changed, err := r.sample(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Warn("sample", "err", err)
			continue
		}

		r.publish(reading)

		if changed {
			var pkt sonar.Packet
			r.Lock()
			r.Path = "update"
			pkt.Marshal(r)
			r.Unlock()
			i.Inject(&pkt)
		}
	}
}
