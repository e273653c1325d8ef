package main

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Directory is a track directory registered for one selector slot.
type Directory struct {
	Name string           // base name, e.g. "3-animals"
	Path string           // identifier passed back to ListFiles
	Slot SelectorPosition // derived from the leading digit of Name
}

// Storage enumerates track directories and their files.
type Storage interface {
	// ListSubdirectories returns the directories under root whose names start
	// with a slot digit '1'..'5', in storage order.
	ListSubdirectories(root string) ([]Directory, error)

	// ListFiles returns at most maxFiles short names in dir, skipping names
	// that start with '_'.
	ListFiles(dir string, maxFiles int) ([]string, error)
}

// slotFromName derives the selector slot from a directory name's leading digit.
func slotFromName(name string) (SelectorPosition, bool) {
	name = path.Base(name)
	if name == "" {
		return NoSelection, false
	}
	c := name[0]
	if c < '1' || c > '0'+selectorPositions {
		return NoSelection, false
	}
	return SelectorPosition(c - '0'), true
}

// filterTrackNames drops hidden ('_'-prefixed) and empty names and caps the
// result at maxFiles, keeping order.
func filterTrackNames(names []string, maxFiles int) []string {
	out := make([]string, 0, min(len(names), maxFiles))
	for _, n := range names {
		if len(out) >= maxFiles {
			break
		}
		if n == "" || strings.HasPrefix(n, "_") {
			continue
		}
		out = append(out, n)
	}
	return out
}

// DirectorySelection is the directory loaded for the active trigger.
type DirectorySelection struct {
	Position SelectorPosition
	Tracks   TrackList
}

// DirectoryController maps directory selector readings onto loaded track
// lists and drives playback start/stop on trigger changes.
type DirectoryController struct {
	storage  Storage
	seq      *TrackSequencer
	maxFiles int
	logger   *slog.Logger

	registry map[SelectorPosition]Directory

	// last is the last nonzero position acted on; NoSelection after release.
	last SelectorPosition

	// selection is nil when no directory is loaded.
	selection *DirectorySelection
}

func newDirectoryController(storage Storage, seq *TrackSequencer, maxFiles int, logger *slog.Logger) *DirectoryController {
	if logger == nil {
		logger = discardLogger()
	}
	return &DirectoryController{
		storage:  storage,
		seq:      seq,
		maxFiles: maxFiles,
		logger:   logger,
		registry: make(map[SelectorPosition]Directory),
	}
}

// Rescan rebuilds the slot registry from storage. On failure the previous
// registry is kept and the error returned.
//
// If the directory behind the active trigger changed or disappeared, the
// trigger is forgotten so the next reading of that position loads the new
// directory. Rescan never stops playback; call it while idle.
func (c *DirectoryController) Rescan(root string) error {
	dirs, err := c.storage.ListSubdirectories(root)
	if err != nil {
		return err
	}
	registry := make(map[SelectorPosition]Directory, selectorPositions)
	for _, d := range dirs {
		if d.Slot <= NoSelection || d.Slot > selectorPositions {
			continue
		}
		if prev, dup := registry[d.Slot]; dup {
			c.logger.Warn("duplicate directory for slot; keeping first",
				"slot", int(d.Slot), "kept", prev.Name, "ignored", d.Name)
			continue
		}
		registry[d.Slot] = d
	}
	if c.last != NoSelection {
		old, hadOld := c.registry[c.last]
		cur, hasCur := registry[c.last]
		if hadOld != hasCur || old != cur {
			c.logger.Info("active directory changed on storage; dropping selection",
				"slot", int(c.last), "was", old.Path, "now", cur.Path)
			c.last = NoSelection
			c.selection = nil
			if c.seq != nil {
				c.seq.Reset()
			}
		}
	}
	c.registry = registry
	c.logger.Info("directories registered", "count", len(registry))
	return nil
}

// Registered returns the directory for a slot.
func (c *DirectoryController) Registered(pos SelectorPosition) (Directory, bool) {
	d, ok := c.registry[pos]
	return d, ok
}

func (c *DirectoryController) lookup(pos SelectorPosition) (Directory, error) {
	d, ok := c.registry[pos]
	if !ok {
		return Directory{}, fmt.Errorf("%w: %d", ErrNoDirectory, pos)
	}
	return d, nil
}

// Selection returns the loaded selection, or nil.
func (c *DirectoryController) Selection() *DirectorySelection {
	return c.selection
}

// Update applies one decoded directory selector reading and reports whether
// it counts as user interaction. A held selector only advances the track
// once the audio service has confirmed it is stopped.
//
// This is intended to be called only by the daemon goroutine (single-owner).
func (c *DirectoryController) Update(pos SelectorPosition, activity PlaybackActivity) bool {
	switch {
	case pos == NoSelection:
		// Releasing the selector is not interaction: it must not keep the
		// device awake.
		if activity.mayBePlaying() {
			c.seq.Stop()
		}
		if c.last != NoSelection {
			c.logger.Debug("directory selector released", "was", int(c.last))
		}
		c.last = NoSelection
		c.selection = nil
		c.seq.Reset()
		return false

	case pos == c.last:
		if activity == PlaybackStopped {
			c.seq.PlayNext()
		}
		return false
	}

	c.last = pos
	if activity.mayBePlaying() {
		c.seq.Stop()
	}

	dir, err := c.lookup(pos)
	if err != nil {
		c.logger.Debug("trigger ignored", "error", err)
		c.selection = nil
		c.seq.Reset()
		return true
	}

	files, err := c.storage.ListFiles(dir.Path, c.maxFiles)
	if err != nil {
		c.logger.Warn("listing failed", "dir", dir.Path, "error", err)
		files = nil
	}
	tracks := NewTrackList(dir.Path, filterTrackNames(files, c.maxFiles), c.maxFiles)
	c.selection = &DirectorySelection{Position: pos, Tracks: tracks}
	c.seq.Load(tracks)
	c.logger.Info("directory selected", "position", int(pos), "dir", dir.Name, "tracks", tracks.Len())

	if tracks.Len() == 0 {
		return true
	}
	if err := c.seq.PlayTrackAt(0); err != nil {
		c.logger.Warn("start failed", "error", err)
	}
	return true
}
