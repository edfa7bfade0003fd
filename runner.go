package sonar

import (
	"context"
	"log/slog"
)

// Runner runs a thing without a web server, for firmware builds
type Runner struct {
	thinger  Thinger
	bus      *Bus
	injector *Injector
}

func NewRunner(thinger Thinger) *Runner {
	var r Runner

	r.thinger = thinger

	r.bus = NewBus("runner bus", nil, nil)
	r.bus.Handle("", dispatch(thinger))
	r.injector = NewInjector("runner injector", r.bus)

	return &r
}

// Run marks the thing as metal, restores its saved state, and runs it until
// ctx is done
func (r *Runner) Run(ctx context.Context) error {
	r.thinger.SetFlag(ThingFlagMetal)
	if err := ThingRestore(r.thinger); err != nil {
		slog.Warn("restore failed", "thing", r.thinger, "err", err)
	}
	return r.thinger.Run(ctx, r.injector)
}

// Injector returns the runner's in-process socket
func (r *Runner) Injector() *Injector {
	return r.injector
}
