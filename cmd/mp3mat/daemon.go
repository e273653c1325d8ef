package main

import (
	"context"
	"log/slog"
	"time"
)

// Sampler reads raw inputs.
type Sampler interface {
	ReadAnalog(channel int) (int, error) // 0..1023
	ReadDigital(pin int) (Level, error)
}

// PlaybackStatus is the read-only view of the audio service.
type PlaybackStatus interface {
	IsPlaying() (bool, error)
	PositionMS() (uint32, error)
}

// AudioService is the full audio collaborator. The daemon splits it into
// Player (sequencer only), VolumeOutput (fader only) and PlaybackStatus.
type AudioService interface {
	Player
	VolumeOutput
	PlaybackStatus
}

// DaemonConfig holds the resolved runtime parameters for the orchestrator.
type DaemonConfig struct {
	Root string

	DirectoryChannel int
	VolumeChannel    int

	NextPin     int
	PreviousPin int
	SwitchLevel Level // level a pressed switch reads

	WakePins []int

	ButtonDelay     time.Duration
	SleepDelay      time.Duration
	PreviousRestart time.Duration

	MaxFiles      int
	InitialVolume int
	UpdateHz      int
}

// Daemon is the fixed-tick orchestrator.
type Daemon struct {
	cfg DaemonConfig

	sampler Sampler
	status  PlaybackStatus
	decoder SelectorDecoder

	seq   *TrackSequencer
	dirs  *DirectoryController
	fader *VolumeFader
	power *PowerManager

	next     Switch
	previous Switch

	lastSample time.Time
	sampled    bool

	state  DaemonState
	faults map[string]bool
	logger *slog.Logger
}

func newDaemon(
	cfg DaemonConfig,
	decoder SelectorDecoder,
	audio AudioService,
	storage Storage,
	sampler Sampler,
	wake WakeController,
	clock func() time.Time,
	logger *slog.Logger,
) *Daemon {
	if logger == nil {
		logger = discardLogger()
	}
	seq := newTrackSequencer(audio, uint32(cfg.PreviousRestart.Milliseconds()), logger.With("component", "sequencer"))
	return &Daemon{
		cfg:      cfg,
		sampler:  sampler,
		status:   audio,
		decoder:  decoder,
		seq:      seq,
		dirs:     newDirectoryController(storage, seq, cfg.MaxFiles, logger.With("component", "directory")),
		fader:    newVolumeFader(audio, cfg.InitialVolume, logger.With("component", "fader")),
		power:    newPowerManager(wake, cfg.WakePins, cfg.SleepDelay, clock, logger.With("component", "power")),
		next:     Switch{Pin: cfg.NextPin, Trigger: cfg.SwitchLevel},
		previous: Switch{Pin: cfg.PreviousPin, Trigger: cfg.SwitchLevel},
		faults:   make(map[string]bool),
		logger:   logger,
	}
}

// Init registers the track directories. A failure leaves the registry empty;
// the daemon still runs and retries after every wake.
func (d *Daemon) Init() {
	d.fault("rescan", d.dirs.Rescan(d.cfg.Root))
}

// Run ticks the orchestrator at cfg.UpdateHz until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) {
	updateHz := d.cfg.UpdateHz
	if updateHz <= 0 {
		updateHz = defaultUpdateHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(updateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return
		case now := <-ticker.C:
			d.Step(ctx, now)
		}
	}
}

// Step runs one tick. The order is load-bearing: the power decision must see
// this tick's interaction flags, and the fader pushes volume last.
func (d *Daemon) Step(ctx context.Context, now time.Time) {
	interaction := false
	d.refreshPlayback()

	sampled := false
	if !d.sampled || now.Sub(d.lastSample) >= d.cfg.ButtonDelay {
		d.lastSample = now
		d.sampled = true
		sampled = true
		if d.sampleSelectors() {
			interaction = true
		}
	}

	if d.pollSwitch(&d.next) {
		interaction = true
		d.logger.Debug("next pressed")
		d.seq.PlayNext()
	}
	if d.pollSwitch(&d.previous) {
		interaction = true
		d.logger.Debug("previous pressed")
		d.seq.PlayPrevious(d.state.Playback.ElapsedMS)
	}

	activity := d.readActivity()

	// Wake edges are only armed once sleep starts, so a selector moved since
	// the last sample must be seen before then.
	if !interaction && !sampled && activity == PlaybackStopped && d.power.Due(now) {
		d.lastSample = now
		if d.sampleSelectors() {
			interaction = true
			activity = d.readActivity()
		}
	}

	// An unreadable status holds the device awake.
	slept, err := d.power.Evaluate(ctx, now, interaction, activity.mayBePlaying())
	d.fault("sleep", err)
	if slept {
		d.afterWake()
	}

	d.fault("volume", d.fader.Tick())
	d.syncState()
}

func (d *Daemon) sampleSelectors() bool {
	interaction := false

	raw, err := d.sampler.ReadAnalog(d.cfg.DirectoryChannel)
	d.fault("directory selector", err)
	if err == nil {
		pos := d.decoder.Decode(raw)
		d.state.DirectoryPosition = pos
		if d.dirs.Update(pos, d.state.Playback.Activity) {
			interaction = true
		}
	}

	raw, err = d.sampler.ReadAnalog(d.cfg.VolumeChannel)
	d.fault("volume selector", err)
	if err == nil {
		pos := d.decoder.Decode(raw)
		d.state.VolumePosition = pos
		if d.fader.SetTargetFromPosition(pos) {
			interaction = true
		}
	}
	return interaction
}

func (d *Daemon) pollSwitch(s *Switch) bool {
	level, err := d.sampler.ReadDigital(s.Pin)
	d.fault("switch", err)
	if err != nil {
		return false
	}
	return s.Sample(level)
}

func (d *Daemon) refreshPlayback() {
	activity := d.readActivity()
	d.state.Playback.Activity = activity

	switch activity {
	case PlaybackStopped:
		d.state.Playback.ElapsedMS = 0
	case PlaybackPlaying:
		pos, err := d.status.PositionMS()
		d.fault("position", err)
		if err == nil {
			d.state.Playback.ElapsedMS = pos
		}
	}
}

func (d *Daemon) readActivity() PlaybackActivity {
	playing, err := d.status.IsPlaying()
	d.fault("status", err)
	switch {
	case err != nil:
		return PlaybackUnknown
	case playing:
		return PlaybackPlaying
	}
	return PlaybackStopped
}

// afterWake re-reads the storage layout and forces a selector sample on the
// next tick so the waking input is evaluated immediately.
func (d *Daemon) afterWake() {
	d.fault("rescan", d.dirs.Rescan(d.cfg.Root))
	d.sampled = false
}

func (d *Daemon) syncState() {
	d.state.Playback.TrackIndex, d.state.Playback.HasTrack = d.seq.Current()
	d.state.Volume = d.fader.State()
	d.state.Selection = d.dirs.Selection()
	d.state.Power = d.power.State()
	d.state.Armed = d.power.Armed()
	d.state.LastInteraction = d.power.LastInteraction()
}

// Snapshot returns a copy of the daemon state.
func (d *Daemon) Snapshot() DaemonState {
	s := d.state
	if s.Selection != nil {
		sel := *s.Selection
		s.Selection = &sel
	}
	return s
}

// fault logs the first failure of a given kind and its recovery, so a
// persistent collaborator failure does not flood the log at tick rate.
func (d *Daemon) fault(kind string, err error) {
	if err != nil {
		if !d.faults[kind] {
			d.faults[kind] = true
			d.logger.Warn("collaborator failure", "kind", kind, "error", err)
		}
		return
	}
	if d.faults[kind] {
		d.faults[kind] = false
		d.logger.Info("collaborator recovered", "kind", kind)
	}
}
