package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// WakeController arms pin-change wake sources and blocks in low-power sleep.
type WakeController interface {
	// Arm enables pin-change detection on pins. onWake may be called from
	// another goroutine and must only be used to signal.
	Arm(pins []int, onWake func()) error

	// Disarm disables every wake source enabled by Arm. It must be safe to
	// call after a partial or failed Arm.
	Disarm() error

	// Sleep enters the deepest available low-power mode and blocks until an
	// armed pin transitions (or ctx is canceled at process shutdown).
	Sleep(ctx context.Context) error
}

// PowerState is the power manager's state.
type PowerState int

const (
	PowerAwake PowerState = iota
	PowerEnteringSleep
)

func (s PowerState) String() string {
	if s == PowerEnteringSleep {
		return "entering-sleep"
	}
	return "awake"
}

// PowerManager tracks idle time and puts the device to sleep.
type PowerManager struct {
	ctl   WakeController
	pins  []int
	delay time.Duration
	clock func() time.Time

	state           PowerState
	lastInteraction time.Time

	// armed is true only while wake interrupts are enabled around one sleep.
	armed atomic.Bool
	// woke is the only thing the wake handler touches.
	woke atomic.Bool

	logger *slog.Logger
}

func newPowerManager(ctl WakeController, pins []int, delay time.Duration, clock func() time.Time, logger *slog.Logger) *PowerManager {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &PowerManager{
		ctl:             ctl,
		pins:            append([]int(nil), pins...),
		delay:           delay,
		clock:           clock,
		lastInteraction: clock(),
		logger:          logger,
	}
}

// Armed reports whether wake interrupts are currently armed.
func (p *PowerManager) Armed() bool { return p.armed.Load() }

// State returns the current power state.
func (p *PowerManager) State() PowerState { return p.state }

// LastInteraction returns the idle timer origin.
func (p *PowerManager) LastInteraction() time.Time { return p.lastInteraction }

// Idle returns how long the device has been idle as of now.
func (p *PowerManager) Idle(now time.Time) time.Duration { return now.Sub(p.lastInteraction) }

// Due reports whether the idle delay has elapsed as of now.
func (p *PowerManager) Due(now time.Time) bool { return p.Idle(now) >= p.delay }

// Evaluate updates the idle timer with this tick's interaction and playback
// state and sleeps once the idle delay has elapsed. It reports whether the
// device went to sleep (and has since woken).
//
// This is intended to be called only by the daemon goroutine (single-owner).
func (p *PowerManager) Evaluate(ctx context.Context, now time.Time, interaction, playing bool) (bool, error) {
	if interaction || playing {
		p.lastInteraction = now
		return false, nil
	}
	if !p.Due(now) {
		return false, nil
	}
	p.logger.Info("idle; sleeping", "idle_ms", p.Idle(now).Milliseconds())
	err := p.sleep(ctx)
	p.lastInteraction = p.clock()
	return true, err
}

// onWake is the wake handler: it only raises the flag.
func (p *PowerManager) onWake() {
	p.woke.Store(true)
}

func (p *PowerManager) sleep(ctx context.Context) (err error) {
	p.state = PowerEnteringSleep
	p.woke.Store(false)
	p.armed.Store(true)
	defer func() {
		if derr := p.ctl.Disarm(); derr != nil && err == nil {
			err = fmt.Errorf("disarm wake sources: %w", derr)
		}
		p.armed.Store(false)
		p.state = PowerAwake
		if p.woke.Swap(false) {
			p.logger.Info("woke on pin change")
		}
	}()

	if err := p.ctl.Arm(p.pins, p.onWake); err != nil {
		return fmt.Errorf("arm wake sources: %w", err)
	}

	// A pin may already have moved between the last sample and arming.
	if p.woke.Load() {
		p.logger.Debug("input changed while arming; skipping sleep")
		return nil
	}

	if err := p.ctl.Sleep(ctx); err != nil {
		return fmt.Errorf("sleep: %w", err)
	}
	return nil
}

// Sleep modes accepted in configuration.
const (
	SleepModeAuto    = "auto"
	SleepModeMem     = "mem"
	SleepModeStandby = "standby"
	SleepModeFreeze  = "freeze"
	SleepModeNone    = "none"
)

// sleepModesDeepestFirst excludes "disk": resuming from hibernation is a
// reboot, not a wake.
var sleepModesDeepestFirst = []string{SleepModeMem, SleepModeStandby, SleepModeFreeze}

// deepestSleepMode picks the mode to write to /sys/power/state given its
// contents. A specific request is honored when available; otherwise (or for
// "auto") the deepest available mode wins. "" means none is usable.
func deepestSleepMode(available, requested string) string {
	have := make(map[string]bool)
	for _, m := range strings.Fields(available) {
		have[m] = true
	}
	if requested == SleepModeNone {
		return ""
	}
	if requested != SleepModeAuto && have[requested] {
		return requested
	}
	for _, m := range sleepModesDeepestFirst {
		if have[m] {
			return m
		}
	}
	return ""
}
