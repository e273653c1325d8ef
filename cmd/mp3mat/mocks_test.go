package main

import (
	"context"
	"errors"
	"time"
)

// mockAudio is a test double for AudioService.
type mockAudio struct {
	plays     []string
	stopCalls int
	volumes   []int

	playing    bool
	positionMS uint32

	playErr   error
	stopErr   error
	statusErr error
	volumeErr error
}

func newMockAudio() *mockAudio {
	return &mockAudio{}
}

func (m *mockAudio) Play(file string) error {
	if m.playErr != nil {
		return m.playErr
	}
	m.plays = append(m.plays, file)
	m.playing = true
	m.positionMS = 0
	return nil
}

func (m *mockAudio) Stop() error {
	m.stopCalls++
	if m.stopErr != nil {
		return m.stopErr
	}
	m.playing = false
	return nil
}

func (m *mockAudio) IsPlaying() (bool, error) {
	if m.statusErr != nil {
		return false, m.statusErr
	}
	return m.playing, nil
}

func (m *mockAudio) PositionMS() (uint32, error) {
	if m.statusErr != nil {
		return 0, m.statusErr
	}
	return m.positionMS, nil
}

func (m *mockAudio) SetVolume(level int) error {
	m.volumes = append(m.volumes, level)
	return m.volumeErr
}

func (m *mockAudio) lastPlay() string {
	if len(m.plays) == 0 {
		return ""
	}
	return m.plays[len(m.plays)-1]
}

// mockStorage is a test double for Storage.
type mockStorage struct {
	dirs  []Directory
	files map[string][]string

	dirsErr  error
	filesErr map[string]error

	rescans   int
	listCalls []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		files:    make(map[string][]string),
		filesErr: make(map[string]error),
	}
}

// addDir registers a directory named name under root "music" holding files.
func (m *mockStorage) addDir(name string, files ...string) Directory {
	slot, _ := slotFromName(name)
	d := Directory{Name: name, Path: "music/" + name, Slot: slot}
	m.dirs = append(m.dirs, d)
	m.files[d.Path] = files
	return d
}

func (m *mockStorage) ListSubdirectories(root string) ([]Directory, error) {
	m.rescans++
	if m.dirsErr != nil {
		return nil, m.dirsErr
	}
	return append([]Directory(nil), m.dirs...), nil
}

func (m *mockStorage) ListFiles(dir string, maxFiles int) ([]string, error) {
	m.listCalls = append(m.listCalls, dir)
	if err := m.filesErr[dir]; err != nil {
		return nil, err
	}
	return filterTrackNames(m.files[dir], maxFiles), nil
}

// mockSampler is a test double for Sampler. Unset digital pins read High
// (released, for active-low switches).
type mockSampler struct {
	analog  map[int]int
	digital map[int]Level

	analogErr  error
	digitalErr error

	analogReads int
}

func newMockSampler() *mockSampler {
	return &mockSampler{
		analog:  make(map[int]int),
		digital: make(map[int]Level),
	}
}

func (m *mockSampler) ReadAnalog(channel int) (int, error) {
	m.analogReads++
	if m.analogErr != nil {
		return 0, m.analogErr
	}
	return m.analog[channel], nil
}

func (m *mockSampler) ReadDigital(pin int) (Level, error) {
	if m.digitalErr != nil {
		return High, m.digitalErr
	}
	level, ok := m.digital[pin]
	if !ok {
		return High, nil
	}
	return level, nil
}

// mockWake is a test double for WakeController.
type mockWake struct {
	armCalls    int
	disarmCalls int
	sleepCalls  int
	armedPins   []int

	armErr    error
	disarmErr error
	sleepErr  error

	// wakeDuringArm fires the handler from inside Arm (input changed while arming).
	wakeDuringArm bool
	// wakeOnSleep fires the handler from inside Sleep.
	wakeOnSleep bool
	// duringSleep runs inside Sleep, e.g. to observe PowerManager state or
	// advance a fake clock.
	duringSleep func()

	onWake func()
}

func (m *mockWake) Arm(pins []int, onWake func()) error {
	m.armCalls++
	m.armedPins = append([]int(nil), pins...)
	m.onWake = onWake
	if m.armErr != nil {
		return m.armErr
	}
	if m.wakeDuringArm {
		onWake()
	}
	return nil
}

func (m *mockWake) Disarm() error {
	m.disarmCalls++
	m.onWake = nil
	return m.disarmErr
}

func (m *mockWake) Sleep(ctx context.Context) error {
	m.sleepCalls++
	if m.duringSleep != nil {
		m.duringSleep()
	}
	if m.sleepErr != nil {
		return m.sleepErr
	}
	if m.wakeOnSleep && m.onWake != nil {
		m.onWake()
	}
	return nil
}

// fakeClock is a settable clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

var errMock = errors.New("mock failure")
