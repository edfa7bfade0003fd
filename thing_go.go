//go:build !tinygo

package sonar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// StoreDir is where ThingStore keeps device state
var StoreDir = "."

func storeName(t Thinger) string {
	return filepath.Join(StoreDir, t.Model()+"-"+t.Id())
}

// ThingStore saves a metal thing's exported state, or the Kept part of a
// Keeper, as JSON
func ThingStore(t Thinger) error {
	if !t.TestFlag(ThingFlagMetal) {
		return nil
	}
	bytes, err := json.Marshal(kept(t))
	if err != nil {
		return fmt.Errorf("store %s: %w", t.Id(), err)
	}
	slog.Debug("thing store", "file", storeName(t))
	return os.WriteFile(storeName(t), bytes, 0600)
}

// ThingRestore loads a metal thing's saved state.  A thing with no saved
// state gets its current state stored.
func ThingRestore(t Thinger) error {
	if !t.TestFlag(ThingFlagMetal) {
		return nil
	}
	bytes, err := os.ReadFile(storeName(t))
	if os.IsNotExist(err) {
		return ThingStore(t)
	}
	if err != nil {
		return fmt.Errorf("restore %s: %w", t.Id(), err)
	}
	slog.Debug("thing restore", "file", storeName(t))
	if err := json.Unmarshal(bytes, kept(t)); err != nil {
		return fmt.Errorf("restore %s: %w", t.Id(), err)
	}
	return nil
}
