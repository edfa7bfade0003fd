//go:build tinygo

package sonar

import "log/slog"

// ThingStore is not implemented on TinyGo; there is no filesystem
func ThingStore(t Thinger) error {
	if t.TestFlag(ThingFlagMetal) {
		slog.Debug("thing store not implemented")
	}
	return nil
}

func ThingRestore(t Thinger) error {
	if t.TestFlag(ThingFlagMetal) {
		slog.Debug("thing restore not implemented")
	}
	return nil
}
