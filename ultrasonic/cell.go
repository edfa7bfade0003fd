package ultrasonic

import (
	"sync/atomic"
	"time"
)

// Sample is one latched echo capture.  Generation counts captures since the
// sensor was created; zero means nothing has been captured yet.
type Sample struct {
	Ticks      uint16
	Generation uint32
}

// Centimeters converts the sample to a distance
func (s Sample) Centimeters() uint32 {
	return Centimeters(s.Ticks)
}

// Inches converts the sample to a distance in whole inches
func (s Sample) Inches() uint32 {
	return uint32(s.Ticks) * 100 / (TicksPerCentimeter * 254)
}

// Duration returns the echo pulse width
func (s Sample) Duration() time.Duration {
	return time.Duration(s.Ticks) * Tick
}

// Cell is a single-slot handoff between the echo interrupt handler (the only
// writer) and the sampler (the reader).  Ticks and generation live in one
// word, so a reader sees either the old sample or the new one, never a mix.
type Cell struct {
	word atomic.Uint64
}

func pack(s Sample) uint64 {
	return uint64(s.Generation)<<32 | uint64(s.Ticks)
}

func unpack(w uint64) Sample {
	return Sample{Ticks: uint16(w), Generation: uint32(w >> 32)}
}

// Store latches ticks as the newest sample.  Only one goroutine or interrupt
// context may call Store.
func (c *Cell) Store(ticks uint16) {
	gen := uint32(c.word.Load()>>32) + 1
	if gen == 0 {
		gen = 1
	}
	c.word.Store(pack(Sample{Ticks: ticks, Generation: gen}))
}

// Load returns the latched sample.  Before the first capture it is the zero
// Sample.
func (c *Cell) Load() Sample {
	return unpack(c.word.Load())
}

// Latest returns the latched sample and whether any capture has happened.
func (c *Cell) Latest() (Sample, bool) {
	s := c.Load()
	return s, s.Generation != 0
}
