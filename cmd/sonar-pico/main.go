//go:build tinygo && nano_rp2040

// Firmware for an Arduino Nano RP2040 Connect with an HC-SR04 on D2/D3 and
// an SSD1306 OLED on I2C0.  Build with:
//
//	tinygo flash -target nano_rp2040 -ldflags "-X main.ssid=... -X main.pass=... -X main.broker=host:1883" ./cmd/sonar-pico
package main

import (
	"context"
	"machine"
	"time"

	"github.com/merliot/sonar"
	"github.com/merliot/sonar/console"
	"github.com/merliot/sonar/ranger"
	"github.com/merliot/sonar/timer/mcu"
	"github.com/merliot/sonar/ultrasonic"
)

// set by -ldflags
var (
	id     = "sonar01"
	ssid   string
	pass   string
	broker string
)

var (
	triggerPin = machine.D2 // GPIO25, PWM slice 4 channel B
	triggerPWM = machine.PWM4
	echoPin    = machine.D3
)

func main() {
	// wait a bit for serial
	time.Sleep(2 * time.Second)

	log := sonar.NewLogger(machine.Serial, false)

	sensor := ultrasonic.New(
		mcu.NewPulseOutput(triggerPWM, triggerPin),
		mcu.NewCapture(echoPin),
	)
	if err := sensor.Init(); err != nil {
		log.Error("sensor init", "err", err)
	}

	screen := newScreen()
	opts := []ranger.Option{
		ranger.WithLogger(log),
		ranger.WithObserver(screen),
	}

	if ssid != "" {
		if err := netConnect(ssid, pass); err != nil {
			log.Error("wifi", "ssid", ssid, "err", err)
		} else if broker != "" {
			pub, err := dialBroker(broker, id)
			if err != nil {
				log.Error("mqtt", "broker", broker, "err", err)
			} else {
				opts = append(opts, ranger.WithPublisher(pub))
			}
		}
	}

	r := ranger.New(id, "ranger", "sonar", sensor, opts...)
	runner := sonar.NewRunner(r)

	ctx := context.Background()
	go screen.run(ctx)
	go console.New(sensor, machine.Serial).Run(ctx, serialReader{})

	if err := runner.Run(ctx); err != nil {
		log.Error("run", "err", err)
	}
	select {}
}

// serialReader blocks until the USB serial port has input
type serialReader struct{}

func (serialReader) Read(p []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}
