//go:build tinygo && nano_rp2040

package main

import (
	"context"
	"image/color"
	"machine"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/merliot/sonar/ultrasonic"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

var white = color.RGBA{255, 255, 255, 255}

// screen shows the latest distance on the OLED
type screen struct {
	display ssd1306.Device
	cfg     ssd1306.Config
	cm      atomic.Uint32
	fresh   atomic.Bool
	seen    atomic.Bool
}

func newScreen() *screen {
	machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
	// the display needs a moment after a cold boot
	time.Sleep(time.Second)
	s := &screen{
		display: ssd1306.NewI2C(machine.I2C0),
		cfg:     ssd1306.Config{Width: 128, Height: 64, Address: 0x3C, VccState: ssd1306.SWITCHCAPVCC},
	}
	s.display.Configure(s.cfg)
	s.display.ClearDisplay()
	return s
}

func (s *screen) Observe(id string, sample ultrasonic.Sample, fresh bool) {
	s.cm.Store(sample.Centimeters())
	s.fresh.Store(fresh)
	s.seen.Store(sample.Generation != 0)
}

func (s *screen) draw() {
	s.display.ClearBuffer()
	if !s.seen.Load() {
		tinyfont.WriteLine(&s.display, &proggy.TinySZ8pt7b, 0, 10, "no echo", white)
	} else {
		tinyfont.WriteLine(&s.display, &freemono.Bold18pt7b, 0, 40, strconv.Itoa(int(s.cm.Load()))+" cm", white)
		if !s.fresh.Load() {
			tinyfont.WriteLine(&s.display, &proggy.TinySZ8pt7b, 0, 60, "stale", white)
		}
	}
	s.display.Display()
}

func (s *screen) run(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.draw()
		}
	}
}
