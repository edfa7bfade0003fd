package periphio

import (
	"fmt"
	"sync"
	"time"

	"github.com/merliot/sonar/timer"
	"periph.io/x/periph/conn/gpio"
)

// how long a WaitForEdge call blocks before checking for Close
const edgePoll = 100 * time.Millisecond

// Capture measures the echo pin's pulse width from edge timestamps.  The
// handler runs on the edge-watching goroutine, which stands in for interrupt
// context: it is the only caller, so handler runs never overlap.
type Capture struct {
	pin        gpio.PinIn
	mu         sync.Mutex
	cfg        timer.CaptureConfig
	configured bool
	enabled    bool
	resetAt    time.Time
	ccr        uint16
	pending    bool
	handler    func()
	stop       chan struct{}
	done       chan struct{}
	now        func() time.Time
}

func NewCapture(pin gpio.PinIn) *Capture {
	return &Capture{pin: pin, now: time.Now}
}

func (c *Capture) Configure(cfg timer.CaptureConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := c.pin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return fmt.Errorf("echo pin %s: %w", c.pin, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.configured = true
	return nil
}

func (c *Capture) SetHandler(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = f
}

// Enable starts watching edges.  GPIO edge interrupts have no priority, so
// priority is ignored.
func (c *Capture) Enable(priority uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return timer.ErrNotConfigured
	}
	if c.enabled {
		return nil
	}
	c.enabled = true
	c.resetAt = c.now()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.watch(c.stop, c.done)
	return nil
}

func (c *Capture) ReadCapture() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	return c.ccr
}

func (c *Capture) CapturePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Close stops watching the echo pin
func (c *Capture) Close() error {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil
	}
	close(c.stop)
	done := c.done
	c.enabled = false
	c.mu.Unlock()
	<-done
	return c.pin.Halt()
}

func (c *Capture) watch(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !c.pin.WaitForEdge(edgePoll) {
			continue
		}
		at := c.now()
		if c.pin.Read() == gpio.High {
			c.edge(at, timer.Rising)
		} else {
			c.edge(at, timer.Falling)
		}
	}
}

func (c *Capture) edge(at time.Time, e timer.Edge) {
	c.mu.Lock()
	if e == c.cfg.ResetEdge {
		c.resetAt = at
	}
	var fire func()
	if e == c.cfg.CaptureEdge {
		c.ccr = c.cfg.Wrap(at.Sub(c.resetAt))
		c.pending = true
		fire = c.handler
	}
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
}
