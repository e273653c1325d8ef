package main

import (
	"fmt"
	"log/slog"
)

// VolumeOutput is the only view of the audio service the fader gets.
type VolumeOutput interface {
	SetVolume(level int) error
}

// VolumeFader ramps the output volume toward a selector-driven target.
//
// Invariants:
//   - current and target stay within [0, maxVolume]
//   - current moves at most one unit per Tick
type VolumeFader struct {
	current int
	target  int

	// lastPosition is the last nonzero selector position seen, used to tell a
	// new volume trigger from a sustained one. 0 after the selector is released.
	lastPosition SelectorPosition

	out    VolumeOutput
	logger *slog.Logger
}

// newVolumeFader creates a fader starting silent and heading for initialTarget.
func newVolumeFader(out VolumeOutput, initialTarget int, logger *slog.Logger) *VolumeFader {
	if logger == nil {
		logger = discardLogger()
	}
	return &VolumeFader{
		target: clampVolume(initialTarget),
		out:    out,
		logger: logger,
	}
}

// volumeForPosition maps positions 1..5 linearly onto [0, maxVolume].
func volumeForPosition(pos SelectorPosition) int {
	return clampVolume(int(pos-1) * maxVolume / (selectorPositions - 1))
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxVolume {
		return maxVolume
	}
	return v
}

// SetTargetFromPosition updates the target from a decoded volume selector
// reading and reports whether the reading is a new trigger.
//
// Position 0 (no contact) holds the last target.
//
// This is intended to be called only by the daemon goroutine (single-owner).
func (f *VolumeFader) SetTargetFromPosition(pos SelectorPosition) bool {
	if pos <= NoSelection || pos > selectorPositions {
		f.lastPosition = NoSelection
		return false
	}
	f.target = volumeForPosition(pos)
	if pos == f.lastPosition {
		return false
	}
	f.lastPosition = pos
	f.logger.Debug("volume target", "position", int(pos), "target", f.target)
	return true
}

// Tick moves current one step toward target and always pushes it to the
// output, even when unchanged.
//
// This is intended to be called only by the daemon goroutine (single-owner).
func (f *VolumeFader) Tick() error {
	switch {
	case f.current < f.target:
		f.current++
	case f.current > f.target:
		f.current--
	}
	if err := f.out.SetVolume(f.current); err != nil {
		return fmt.Errorf("set volume %d: %w", f.current, err)
	}
	return nil
}

// State returns the current/target pair.
func (f *VolumeFader) State() VolumeState {
	return VolumeState{Current: f.current, Target: f.target}
}
