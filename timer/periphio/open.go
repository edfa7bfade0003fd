package periphio

import (
	"fmt"

	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Open initializes the host drivers and looks up the trigger and echo pins
// by name.  For a Raspberry Pi the names are BCM numbers, like "23".
func Open(trigger, echo string) (*PulseOutput, *Capture, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}
	return Lookup(trigger, echo)
}

// Lookup finds already-registered pins by name
func Lookup(trigger, echo string) (*PulseOutput, *Capture, error) {
	tpin := gpioreg.ByName(trigger)
	if tpin == nil {
		return nil, nil, fmt.Errorf("no GPIO trigger pin named: %s", trigger)
	}
	epin := gpioreg.ByName(echo)
	if epin == nil {
		return nil, nil, fmt.Errorf("no GPIO echo pin named: %s", echo)
	}
	return NewPulseOutput(tpin), NewCapture(epin), nil
}
