package ultrasonic

import "time"

const (
	// Tick is the capture and trigger timer resolution.
	Tick = time.Microsecond

	// TriggerWidth is the trigger pulse width, in ticks
	TriggerWidth uint32 = 10
	// TriggerPeriod is the trigger repetition period, in ticks (100ms)
	TriggerPeriod uint32 = 100000

	// MaxTicks is the capture counter span.  Echoes never get close to it,
	// so a count near the ceiling means nothing came back in range.
	MaxTicks uint16 = 0xFFFF

	// TicksPerCentimeter is the round-trip echo time for one centimeter of
	// range at the speed of sound, in microseconds.
	TicksPerCentimeter = 59

	// InterruptPriority is the capture interrupt priority handed to the
	// backend.
	InterruptPriority uint8 = 9
)

// Centimeters converts an echo width in ticks into a distance, truncating.
func Centimeters(ticks uint16) uint32 {
	return uint32(ticks) / TicksPerCentimeter
}
