package ranger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/jonboulle/clockwork"
	"github.com/merliot/sonar"
	"github.com/merliot/sonar/timer/sim"
	"github.com/merliot/sonar/ultrasonic"
)

type recorder struct {
	mu       sync.Mutex
	topics   []string
	readings []Reading
	observed []ultrasonic.Sample
	stale    int
}

func (r *recorder) Publish(topic string, payload []byte) error {
	var reading Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.readings = append(r.readings, reading)
	return nil
}

func (r *recorder) Observe(id string, s ultrasonic.Sample, fresh bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, s)
	if !fresh {
		r.stale++
	}
}

func (r *recorder) last() (Reading, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.readings) == 0 {
		return Reading{}, 0
	}
	return r.readings[len(r.readings)-1], len(r.readings)
}

type rig struct {
	ranger *Ranger
	target *sim.Target
	rec    *recorder
}

func newRig(c *qt.C, opts ...Option) *rig {
	sonar.StoreDir = c.TempDir()
	c.Cleanup(func() { sonar.StoreDir = "." })

	clock := clockwork.NewRealClock()
	pulse := sim.NewPulse(clock)
	capture := sim.NewCapture(clock)
	c.Cleanup(pulse.Close)
	target := sim.NewTarget(clock, capture, 42)
	target.Attach(pulse)

	rec := &recorder{}
	sensor := ultrasonic.New(pulse, capture, ultrasonic.WithPollInterval(100*time.Microsecond))
	opts = append([]Option{
		WithObserver(rec),
		WithPublisher(rec),
		WithPeriod(20*time.Millisecond, 300*time.Millisecond),
	}, opts...)
	return &rig{
		ranger: New("sonar1", "ranger", "front", sensor, opts...),
		target: target,
		rec:    rec,
	}
}

func waitFor(c *qt.C, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTopic(t *testing.T) {
	c := qt.New(t)
	c.Assert(Topic("sonar1"), qt.Equals, "sonar/sonar1/distance")
}

func TestDefaults(t *testing.T) {
	c := qt.New(t)
	clock := clockwork.NewFakeClock()
	sensor := ultrasonic.New(sim.NewPulse(clock), sim.NewCapture(clock))
	r := New("sonar1", "ranger", "front", sensor, WithPeriod(0, 0))
	c.Assert(r.Period, qt.Equals, DefaultPeriod)
	c.Assert(r.Timeout, qt.Equals, DefaultTimeout)
}

func TestRunPublishes(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	runner := sonar.NewRunner(rig.ranger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	waitFor(c, "a fresh 42cm reading", func() bool {
		r, _ := rig.rec.last()
		return r.Fresh && r.Distance == 42
	})

	rig.target.SetDistance(100)
	waitFor(c, "a fresh 100cm reading", func() bool {
		r, _ := rig.rec.last()
		return r.Fresh && r.Distance == 100
	})

	// with no echo the last good distance sticks, marked stale
	rig.target.Silence()
	waitFor(c, "a stale reading", func() bool {
		r, _ := rig.rec.last()
		return !r.Fresh
	})
	last, _ := rig.rec.last()
	c.Assert(last.Distance, qt.Equals, uint32(100))

	cancel()
	c.Assert(<-done, qt.IsNil)

	rig.rec.mu.Lock()
	defer rig.rec.mu.Unlock()
	c.Assert(rig.rec.topics[0], qt.Equals, "sonar/sonar1/distance")
	c.Assert(len(rig.rec.observed), qt.Equals, len(rig.rec.readings))
	c.Assert(rig.rec.stale > 0, qt.IsTrue)
}

func TestServeState(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	server := sonar.NewServer(rig.ranger)
	ts := httptest.NewServer(server.Server.Handler)
	c.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	waitFor(c, "a reading", func() bool {
		r, _ := rig.rec.last()
		return r.Fresh
	})

	resp, err := http.Get(ts.URL + "/")
	c.Assert(err, qt.IsNil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var state struct {
		Path     string
		Distance uint32
		Fresh    bool
		Period   time.Duration
	}
	c.Assert(json.Unmarshal(body, &state), qt.IsNil)
	c.Assert(state.Path, qt.Equals, "state")
	c.Assert(state.Distance, qt.Equals, uint32(42))
	c.Assert(state.Period, qt.Equals, 20*time.Millisecond)

	c.Assert(server.ServeUI(UI()), qt.IsNil)
	resp, err = http.Get(ts.URL + "/ui")
	c.Assert(err, qt.IsNil)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	c.Assert(string(body), qt.Contains, `<span id="Distance">42</span> cm`)
}

func inject(i *sonar.Injector, v any) {
	var pkt sonar.Packet
	i.Inject(pkt.Marshal(v))
}

func TestReadAndConfig(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	runner := sonar.NewRunner(rig.ranger)
	rig.ranger.SetFlag(sonar.ThingFlagMetal)
	c.Assert(rig.ranger.sensor.Init(), qt.IsNil)

	inject(runner.Injector(), &sonar.ThingMsg{Path: "read"})
	c.Assert(rig.ranger.Distance, qt.Equals, uint32(42))
	c.Assert(rig.ranger.Fresh, qt.IsTrue)
	c.Assert(rig.ranger.Generation > 0, qt.IsTrue)

	inject(runner.Injector(), &MsgConfig{Path: "config", Period: time.Second, Timeout: 50 * time.Millisecond})
	c.Assert(rig.ranger.Period, qt.Equals, time.Second)
	c.Assert(rig.ranger.Timeout, qt.Equals, 50*time.Millisecond)

	// bad config is ignored
	inject(runner.Injector(), &MsgConfig{Path: "config", Period: 0, Timeout: time.Second})
	c.Assert(rig.ranger.Period, qt.Equals, time.Second)

	// the new config was stored and restores into a fresh ranger
	other := New("sonar1", "ranger", "front", rig.ranger.sensor)
	other.SetFlag(sonar.ThingFlagMetal)
	c.Assert(sonar.ThingRestore(other), qt.IsNil)
	c.Assert(other.Period, qt.Equals, time.Second)
	c.Assert(other.Timeout, qt.Equals, 50*time.Millisecond)
}

func TestStateKeepsSettings(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	runner := sonar.NewRunner(rig.ranger)
	rig.ranger.SetFlag(sonar.ThingFlagMetal)
	c.Assert(rig.ranger.sensor.Init(), qt.IsNil)

	type state struct {
		Path     string
		Distance uint32
		Period   time.Duration
		Timeout  time.Duration
	}
	inject(runner.Injector(), &state{Path: "state", Distance: 9})
	c.Assert(rig.ranger.Distance, qt.Equals, uint32(9))
	c.Assert(rig.ranger.Period, qt.Equals, 20*time.Millisecond)
	c.Assert(rig.ranger.Timeout, qt.Equals, 300*time.Millisecond)

	inject(runner.Injector(), &state{Path: "update", Distance: 11, Timeout: time.Nanosecond})
	c.Assert(rig.ranger.Distance, qt.Equals, uint32(11))
	c.Assert(rig.ranger.Timeout, qt.Equals, 300*time.Millisecond)

	// with no echo, read still comes back, stale
	rig.target.Silence()
	done := make(chan struct{})
	go func() {
		inject(runner.Injector(), &sonar.ThingMsg{Path: "read"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		c.Fatal("read did not return")
	}
	c.Assert(rig.ranger.Fresh, qt.IsFalse)
}

func TestRestoreSettingsOnly(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	rig.ranger.SetFlag(sonar.ThingFlagMetal)
	rig.ranger.Reading = Reading{Distance: 77, Ticks: 4543, Generation: 9, Fresh: true}
	rig.ranger.Settings = Settings{Period: time.Second, Timeout: 50 * time.Millisecond}
	c.Assert(sonar.ThingStore(rig.ranger), qt.IsNil)

	saved, err := os.ReadFile(filepath.Join(sonar.StoreDir, "ranger-sonar1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(saved), qt.Equals, `{"Period":1000000000,"Timeout":50000000}`)

	other := New("sonar1", "ranger", "front", rig.ranger.sensor)
	other.SetFlag(sonar.ThingFlagMetal)
	c.Assert(sonar.ThingRestore(other), qt.IsNil)
	c.Assert(other.Reading, qt.Equals, Reading{})
	c.Assert(other.Settings, qt.Equals, Settings{Period: time.Second, Timeout: 50 * time.Millisecond})
}

func TestRestoreBadSettings(t *testing.T) {
	c := qt.New(t)
	rig := newRig(c)
	name := filepath.Join(sonar.StoreDir, "ranger-sonar1")
	c.Assert(os.WriteFile(name, []byte(`{"Period":0,"Timeout":-5}`), 0600), qt.IsNil)

	rig.ranger.SetFlag(sonar.ThingFlagMetal)
	c.Assert(sonar.ThingRestore(rig.ranger), qt.IsNil)
	c.Assert(rig.ranger.settings(), qt.Equals, Settings{Period: DefaultPeriod, Timeout: DefaultTimeout})
}
