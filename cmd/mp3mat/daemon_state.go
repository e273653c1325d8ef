package main

import "time"

// DaemonState is a snapshot of everything the orchestrator owns.
//
// The daemon goroutine is the single writer; Snapshot hands out copies so
// callers (probe output, tests, debug logs) never alias live state.
type DaemonState struct {
	Playback PlaybackState
	Volume   VolumeState

	// Last decoded selector readings.
	DirectoryPosition SelectorPosition
	VolumePosition    SelectorPosition

	// Selection is the loaded directory, nil when none is selected.
	Selection *DirectorySelection

	Power           PowerState
	Armed           bool
	LastInteraction time.Time
}

// PlaybackState is the orchestrator's view of the audio service.
type PlaybackState struct {
	// TrackIndex is only meaningful when HasTrack is true.
	TrackIndex int
	HasTrack   bool

	Activity  PlaybackActivity
	ElapsedMS uint32
}

// PlaybackActivity is what the last status read said about the audio service.
type PlaybackActivity int

const (
	PlaybackStopped PlaybackActivity = iota
	PlaybackPlaying
	// PlaybackUnknown means the status read failed; a track may still be
	// running.
	PlaybackUnknown
)

func (a PlaybackActivity) String() string {
	switch a {
	case PlaybackPlaying:
		return "playing"
	case PlaybackUnknown:
		return "unknown"
	}
	return "stopped"
}

// mayBePlaying is true unless the service confirmed it is stopped.
func (a PlaybackActivity) mayBePlaying() bool {
	return a != PlaybackStopped
}

// VolumeState mirrors the fader.
type VolumeState struct {
	Current int
	Target  int
}
