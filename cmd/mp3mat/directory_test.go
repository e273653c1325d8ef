package main

import (
	"slices"
	"testing"
)

func newTestController(t *testing.T, storage *mockStorage) (*DirectoryController, *TrackSequencer, *mockAudio) {
	t.Helper()
	audio := newMockAudio()
	seq := newTrackSequencer(audio, defaultPreviousRestartMS, nil)
	c := newDirectoryController(storage, seq, defaultMaxFiles, nil)
	if err := c.Rescan("music"); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	return c, seq, audio
}

// TestSlotFromName tests the leading-digit rule.
func TestSlotFromName(t *testing.T) {
	tests := []struct {
		name string
		want SelectorPosition
		ok   bool
	}{
		{"1-stories", 1, true},
		{"5", 5, true},
		{"music/3animals", 3, true},
		{"0-intro", 0, false},
		{"6-extra", 0, false},
		{"animals", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := slotFromName(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("slotFromName(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

// TestFilterTrackNames tests hidden-file exclusion and the cap.
func TestFilterTrackNames(t *testing.T) {
	got := filterTrackNames([]string{"_hidden.mp3", "a.mp3", "", "b.mp3", "c.mp3"}, 2)
	want := []string{"a.mp3", "b.mp3"}
	if !slices.Equal(got, want) {
		t.Errorf("filterTrackNames = %v, want %v", got, want)
	}
}

// TestDirectoryController_Rescan_Duplicates tests that the first directory
// for a slot wins.
func TestDirectoryController_Rescan_Duplicates(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("2-first", "a.mp3")
	storage.addDir("2-second", "b.mp3")
	storage.addDir("4-animals", "c.mp3")

	c, _, _ := newTestController(t, storage)

	d, ok := c.Registered(2)
	if !ok || d.Name != "2-first" {
		t.Errorf("slot 2 = (%+v, %v), want 2-first", d, ok)
	}
	if _, ok := c.Registered(4); !ok {
		t.Error("slot 4 not registered")
	}
	if _, ok := c.Registered(1); ok {
		t.Error("slot 1 should be empty")
	}
}

// TestDirectoryController_Rescan_FailureKeepsRegistry tests that a failed
// rescan does not drop known directories.
func TestDirectoryController_Rescan_FailureKeepsRegistry(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("1-songs", "a.mp3")
	c, _, _ := newTestController(t, storage)

	storage.dirsErr = errMock
	if err := c.Rescan("music"); err == nil {
		t.Fatal("expected rescan error")
	}
	if _, ok := c.Registered(1); !ok {
		t.Error("registry lost after failed rescan")
	}
}

// TestDirectoryController_Rescan_ActiveDirectory tests that a rescan keeps an
// unchanged selection and drops one whose directory was replaced.
func TestDirectoryController_Rescan_ActiveDirectory(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("3-animals", "cat.mp3")
	c, seq, audio := newTestController(t, storage)
	c.Update(3, PlaybackStopped)

	if err := c.Rescan("music"); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if c.Selection() == nil {
		t.Fatal("unchanged directory lost its selection")
	}

	storage.dirs = nil
	storage.addDir("3-birds", "owl.mp3")
	if err := c.Rescan("music"); err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if c.Selection() != nil {
		t.Fatal("replaced directory kept its selection")
	}
	if _, ok := seq.Current(); ok {
		t.Error("cursor kept after the directory was replaced")
	}

	audio.playing = false
	if !c.Update(3, PlaybackStopped) {
		t.Fatal("held position must trigger again after the directory changed")
	}
	if audio.lastPlay() != "music/3-birds/owl.mp3" {
		t.Errorf("expected owl.mp3, got %q", audio.lastPlay())
	}
}

// TestDirectoryController_UnknownActivity tests that a held selector does not
// advance while the playback status is unknown, while release still stops.
func TestDirectoryController_UnknownActivity(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("3-animals", "cat.mp3", "dog.mp3")
	c, seq, audio := newTestController(t, storage)
	c.Update(3, PlaybackStopped)

	c.Update(3, PlaybackUnknown)
	if i, _ := seq.Current(); i != 0 || len(audio.plays) != 1 {
		t.Fatalf("advanced with unknown status: index=%d plays=%v", i, audio.plays)
	}

	stops := audio.stopCalls
	c.Update(NoSelection, PlaybackUnknown)
	if audio.stopCalls != stops+1 {
		t.Error("release with unknown status must stop playback")
	}
}

// TestDirectoryController_Trigger tests a new position loading its directory
// and starting the first track.
func TestDirectoryController_Trigger(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("3-animals", "cat.mp3", "dog.mp3", "_notes.txt")
	c, seq, audio := newTestController(t, storage)

	if !c.Update(3, PlaybackStopped) {
		t.Fatal("new position must be an interaction")
	}
	if audio.lastPlay() != "music/3-animals/cat.mp3" {
		t.Errorf("expected first track, got %q", audio.lastPlay())
	}
	if i, ok := seq.Current(); !ok || i != 0 {
		t.Errorf("cursor = (%d, %v), want (0, true)", i, ok)
	}
	sel := c.Selection()
	if sel == nil || sel.Position != 3 || sel.Tracks.Len() != 2 {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

// TestDirectoryController_Repeat tests the sustained-position policy.
func TestDirectoryController_Repeat(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("3-animals", "cat.mp3", "dog.mp3")
	c, seq, audio := newTestController(t, storage)
	c.Update(3, PlaybackStopped)

	// Still playing: nothing happens.
	if c.Update(3, PlaybackPlaying) {
		t.Error("sustained position must not be an interaction")
	}
	if len(audio.plays) != 1 {
		t.Fatalf("expected no new play while playing, got %v", audio.plays)
	}

	// Track finished: advance.
	audio.playing = false
	c.Update(3, PlaybackStopped)
	if i, _ := seq.Current(); i != 1 {
		t.Errorf("expected auto-advance to track 1, got %d", i)
	}

	// Last track finished: stay.
	audio.playing = false
	c.Update(3, PlaybackStopped)
	if i, _ := seq.Current(); i != 1 {
		t.Errorf("expected to stay on last track, got %d", i)
	}
	if len(audio.plays) != 2 {
		t.Errorf("expected 2 plays, got %v", audio.plays)
	}
}

// TestDirectoryController_RepeatAfterBusyStart tests that a directory whose
// first start failed begins at track 1 on the next sample.
func TestDirectoryController_RepeatAfterBusyStart(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("1-songs", "a.mp3", "b.mp3")
	c, seq, audio := newTestController(t, storage)

	audio.playErr = ErrBusy
	c.Update(1, PlaybackStopped)
	if _, ok := seq.Current(); ok {
		t.Fatal("busy start must not set the cursor")
	}

	audio.playErr = nil
	c.Update(1, PlaybackStopped)
	if i, ok := seq.Current(); !ok || i != 0 {
		t.Errorf("expected first track after busy start, got (%d, %v)", i, ok)
	}
}

// TestDirectoryController_Release tests that position 0 stops and clears.
func TestDirectoryController_Release(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("3-animals", "cat.mp3")
	c, seq, audio := newTestController(t, storage)
	c.Update(3, PlaybackStopped)

	if c.Update(0, PlaybackPlaying) {
		t.Error("release must not be an interaction")
	}
	if audio.stopCalls == 0 || audio.playing {
		t.Error("expected playback stopped on release")
	}
	if c.Selection() != nil {
		t.Error("expected selection cleared")
	}
	if _, ok := seq.Current(); ok {
		t.Error("expected cursor cleared")
	}

	// Touching the same position again is a fresh trigger.
	if !c.Update(3, PlaybackStopped) {
		t.Error("re-trigger after release must be an interaction")
	}
}

// TestDirectoryController_NoDirectory tests a trigger with nothing registered.
func TestDirectoryController_NoDirectory(t *testing.T) {
	storage := newMockStorage()
	storage.addDir("1-songs", "a.mp3")
	c, seq, audio := newTestController(t, storage)
	c.Update(1, PlaybackStopped)

	if !c.Update(4, PlaybackPlaying) {
		t.Error("new position is an interaction even without a directory")
	}
	if audio.stopCalls != 1 {
		t.Errorf("expected current track stopped, got %d stop calls", audio.stopCalls)
	}
	if len(audio.plays) != 1 {
		t.Errorf("expected no new play, got %v", audio.plays)
	}
	if c.Selection() != nil {
		t.Error("expected no selection")
	}
	if _, ok := seq.Current(); ok {
		t.Error("expected cursor cleared")
	}
}

// TestDirectoryController_ListingFailure tests that a listing error yields
// an empty selection and no playback.
func TestDirectoryController_ListingFailure(t *testing.T) {
	storage := newMockStorage()
	d := storage.addDir("2-broken", "a.mp3")
	storage.filesErr[d.Path] = errMock
	c, _, audio := newTestController(t, storage)

	if !c.Update(2, PlaybackStopped) {
		t.Error("expected interaction")
	}
	sel := c.Selection()
	if sel == nil || sel.Tracks.Len() != 0 {
		t.Fatalf("expected empty selection, got %+v", sel)
	}
	if len(audio.plays) != 0 {
		t.Errorf("expected no play, got %v", audio.plays)
	}
}
