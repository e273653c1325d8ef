package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// statusMaxAge bounds how long a cached MPD status is trusted without a
// watcher notification.
const statusMaxAge = time.Second

// MPDConfig describes how to reach the MPD instance that plays the tracks.
type MPDConfig struct {
	Network  string
	Address  string
	Password string
	Retries  int
}

// MPDClient is the audio service and storage lister backed by MPD.
//
// All protocol traffic goes through one connection guarded by mu. The idle
// watcher goroutine only flips the atomic dirty flags.
type MPDClient struct {
	mu     sync.Mutex
	conn   *mpd.Client
	cfg    MPDConfig
	logger *slog.Logger
	now    func() time.Time

	status   mpd.Attrs
	statusAt time.Time

	// lastVolume is the last volume MPD confirmed, -1 if unknown.
	lastVolume int
	volumeAt   time.Time

	watcher     *mpd.Watcher
	statusDirty atomic.Bool
	volumeDirty atomic.Bool
}

// NewMPDClient dials MPD (with retry) and starts the idle watcher.
func NewMPDClient(cfg MPDConfig, logger *slog.Logger) (*MPDClient, error) {
	if cfg.Retries <= 0 {
		cfg.Retries = defaultMPDRetries
	}
	c := &MPDClient{
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		lastVolume: -1,
	}
	c.statusDirty.Store(true)

	c.mu.Lock()
	err := c.connectWithRetryLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	w, err := mpd.NewWatcher(cfg.Network, cfg.Address, cfg.Password, "player", "mixer", "database")
	if err != nil {
		// Status falls back to polling every statusMaxAge.
		logger.Warn("MPD watcher unavailable; polling status", "error", err)
	} else {
		c.watcher = w
		go c.watch(w)
	}
	return c, nil
}

func (c *MPDClient) connectLocked() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	var (
		conn *mpd.Client
		err  error
	)
	if c.cfg.Password != "" {
		conn, err = mpd.DialAuthenticated(c.cfg.Network, c.cfg.Address, c.cfg.Password)
	} else {
		conn, err = mpd.Dial(c.cfg.Network, c.cfg.Address)
	}
	if err != nil {
		return err
	}
	c.conn = conn
	c.lastVolume = -1
	c.statusDirty.Store(true)
	return nil
}

// connectWithRetryLocked attempts to connect with a fixed backoff.
func (c *MPDClient) connectWithRetryLocked() error {
	var lastErr error
	for attempt := 0; attempt < c.cfg.Retries; attempt++ {
		err := c.connectLocked()
		if err == nil {
			c.logger.Info("connected to MPD", "address", c.cfg.Address)
			return nil
		}
		lastErr = err
		c.logger.Warn("MPD connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", c.cfg.Retries, lastErr)
}

// do runs fn on a live connection. If fn fails and the connection no longer
// answers a ping (MPD drops idle clients, e.g. across a long sleep), it
// reconnects once and retries.
func (c *MPDClient) do(fn func(conn *mpd.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}
	err := fn(c.conn)
	if err == nil {
		return nil
	}
	if c.conn.Ping() == nil {
		return err
	}
	c.logger.Warn("MPD connection lost; reconnecting...", "error", err)
	if rerr := c.connectLocked(); rerr != nil {
		c.conn = nil
		return fmt.Errorf("reconnect: %w", rerr)
	}
	return fn(c.conn)
}

func (c *MPDClient) watch(w *mpd.Watcher) {
	for {
		select {
		case subsystem, ok := <-w.Event:
			if !ok {
				return
			}
			switch subsystem {
			case "mixer":
				c.volumeDirty.Store(true)
			default:
				c.statusDirty.Store(true)
			}
		case err, ok := <-w.Error:
			if !ok {
				return
			}
			c.logger.Debug("MPD watcher error", "error", err)
		}
	}
}

// Close stops the watcher and closes the connection.
func (c *MPDClient) Close() error {
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// currentStatus returns the cached status, refreshing it when the watcher
// flagged a change or the cache is stale.
func (c *MPDClient) currentStatus() (mpd.Attrs, time.Time, error) {
	now := c.now()
	if !c.statusDirty.Load() && c.status != nil && now.Sub(c.statusAt) < statusMaxAge {
		return c.status, c.statusAt, nil
	}
	c.statusDirty.Store(false)

	var st mpd.Attrs
	err := c.do(func(conn *mpd.Client) error {
		var err error
		st, err = conn.Status()
		return err
	})
	if err != nil {
		c.statusDirty.Store(true)
		return nil, time.Time{}, fmt.Errorf("status: %w", err)
	}
	c.status = st
	c.statusAt = now
	return st, now, nil
}

// Play replaces the queue with file and starts it.
func (c *MPDClient) Play(file string) error {
	st, _, err := c.currentStatus()
	if err != nil {
		return err
	}
	if statusBusy(st) {
		return ErrBusy
	}
	defer c.statusDirty.Store(true)

	err = c.do(func(conn *mpd.Client) error {
		if err := conn.Clear(); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		if err := conn.Add(file); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		return conn.Play(0)
	})
	if err != nil {
		return fmt.Errorf("play %q: %w", file, err)
	}
	c.logger.Debug("MPD play", "file", file)
	return nil
}

// Stop stops playback.
func (c *MPDClient) Stop() error {
	defer c.statusDirty.Store(true)
	if err := c.do(func(conn *mpd.Client) error { return conn.Stop() }); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// IsPlaying reports whether MPD is in the play state.
func (c *MPDClient) IsPlaying() (bool, error) {
	st, _, err := c.currentStatus()
	if err != nil {
		return false, err
	}
	return st["state"] == "play", nil
}

// PositionMS returns the elapsed time of the current track, extrapolated
// from the cached status while playing.
func (c *MPDClient) PositionMS() (uint32, error) {
	st, at, err := c.currentStatus()
	if err != nil {
		return 0, err
	}
	ms := statusElapsedMS(st)
	if st["state"] == "play" {
		ms += uint32(c.now().Sub(at).Milliseconds())
	}
	return ms, nil
}

// SetVolume applies a 0..maxVolume level. Repeated calls with the level MPD
// already has are not sent. A mixer change made elsewhere is re-applied once
// the watcher reports it or a newer status shows a different volume.
func (c *MPDClient) SetVolume(level int) error {
	if c.volumeDirty.Swap(false) || c.volumeDrifted() {
		c.lastVolume = -1
	}
	level = clampVolume(level)
	if level == c.lastVolume {
		return nil
	}
	v := scaleVolume(level)
	if err := c.do(func(conn *mpd.Client) error { return conn.SetVolume(v) }); err != nil {
		c.lastVolume = -1
		return fmt.Errorf("setvol %d: %w", v, err)
	}
	c.lastVolume = level
	c.volumeAt = c.now()
	return nil
}

// volumeDrifted reports whether a status read after the last setvol shows
// another mixer level.
func (c *MPDClient) volumeDrifted() bool {
	if c.lastVolume < 0 || c.status == nil || !c.statusAt.After(c.volumeAt) {
		return false
	}
	return statusVolumeDiffers(c.status, scaleVolume(c.lastVolume))
}

// statusVolumeDiffers compares the status "volume" field (0..100) with want.
// A missing field or -1 (no mixer) never differs.
func statusVolumeDiffers(st mpd.Attrs, want int) bool {
	v, err := strconv.Atoi(st["volume"])
	if err != nil || v < 0 {
		return false
	}
	return v != want
}

// scaleVolume maps 0..maxVolume onto MPD's 0..100.
func scaleVolume(level int) int {
	return clampVolume(level) * mpdVolumeMax / maxVolume
}

// statusBusy reports whether MPD cannot take a new track right now.
func statusBusy(st mpd.Attrs) bool {
	_, updating := st["updating_db"]
	return updating
}

// statusElapsedMS parses the "elapsed" status field (seconds, fractional).
func statusElapsedMS(st mpd.Attrs) uint32 {
	s, ok := st["elapsed"]
	if !ok {
		return 0
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return uint32(secs * 1000)
}
