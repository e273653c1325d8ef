package main

import (
	"fmt"
	"log/slog"
)

// Player starts and stops tracks on the audio device.
//
// The device holds at most one active track, so a Player must only ever be
// reachable through TrackSequencer.
type Player interface {
	Play(file string) error // nil, ErrBusy or another error
	Stop() error
}

// TrackList is a capacity-bounded, ordered list of track files.
// A slot is populated iff At reports ok.
type TrackList struct {
	dir      string
	files    []string
	capacity int
}

// NewTrackList keeps at most capacity entries of files.
func NewTrackList(dir string, files []string, capacity int) TrackList {
	if capacity < 0 {
		capacity = 0
	}
	if len(files) > capacity {
		files = files[:capacity]
	}
	return TrackList{
		dir:      dir,
		files:    append([]string(nil), files...),
		capacity: capacity,
	}
}

// At returns the file in slot i.
func (l TrackList) At(i int) (string, bool) {
	if i < 0 || i >= len(l.files) {
		return "", false
	}
	return l.files[i], true
}

func (l TrackList) Len() int { return len(l.files) }
func (l TrackList) Cap() int { return l.capacity }

// path joins the directory and slot file into the identifier the audio
// service expects.
func (l TrackList) path(i int) (string, bool) {
	name, ok := l.At(i)
	if !ok {
		return "", false
	}
	if l.dir == "" {
		return name, true
	}
	return l.dir + "/" + name, true
}

// TrackSequencer owns the track cursor for the loaded directory.
type TrackSequencer struct {
	player Player
	tracks TrackList

	// index is meaningful only when started is true: started stays false
	// until a track from the current list has actually begun playing.
	index   int
	started bool

	restartAfterMS uint32
	logger         *slog.Logger
}

func newTrackSequencer(player Player, restartAfterMS uint32, logger *slog.Logger) *TrackSequencer {
	if logger == nil {
		logger = discardLogger()
	}
	return &TrackSequencer{
		player:         player,
		restartAfterMS: restartAfterMS,
		logger:         logger,
	}
}

// Load replaces the track list and resets the cursor. It does not stop or
// start anything.
func (s *TrackSequencer) Load(tracks TrackList) {
	s.tracks = tracks
	s.index = 0
	s.started = false
}

// Reset drops the track list and cursor.
func (s *TrackSequencer) Reset() {
	s.Load(TrackList{})
}

// Current returns the cursor, if a track has been started.
func (s *TrackSequencer) Current() (int, bool) {
	return s.index, s.started
}

// Tracks returns the loaded list.
func (s *TrackSequencer) Tracks() TrackList {
	return s.tracks
}

// Stop stops the active track.
func (s *TrackSequencer) Stop() {
	if err := s.player.Stop(); err != nil {
		s.logger.Warn("stop failed", "error", err)
	}
}

// PlayTrackAt starts slot i. On failure the cursor is unchanged and the
// error is returned.
func (s *TrackSequencer) PlayTrackAt(i int) error {
	file, ok := s.tracks.path(i)
	if !ok {
		return fmt.Errorf("slot %d: %w", i, ErrNoTrack)
	}
	if err := s.player.Play(file); err != nil {
		return fmt.Errorf("play %q: %w", file, err)
	}
	s.index = i
	s.started = true
	s.logger.Info("playing", "slot", i+1, "file", file)
	return nil
}

// PlayNext advances to the next populated slot. Past the last track it is a
// no-op. With no track started yet it starts the first slot.
func (s *TrackSequencer) PlayNext() {
	next := 0
	if s.started {
		next = s.index + 1
	}
	if next >= s.tracks.Cap() {
		return
	}
	if _, ok := s.tracks.At(next); !ok {
		return
	}
	s.Stop()
	if err := s.PlayTrackAt(next); err != nil {
		s.logger.Warn("next track failed", "error", err)
	}
}

// PlayPrevious restarts the current track once it has played for at least
// the restart threshold, otherwise steps back one slot.
func (s *TrackSequencer) PlayPrevious(elapsedMS uint32) {
	if !s.started {
		return
	}
	target := s.index
	if elapsedMS < s.restartAfterMS {
		target = s.index - 1
		if _, ok := s.tracks.At(target); !ok {
			return
		}
	}
	s.Stop()
	if err := s.PlayTrackAt(target); err != nil {
		s.logger.Warn("previous track failed", "error", err)
	}
}
