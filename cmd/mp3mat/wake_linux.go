//go:build linux

package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// GPIOWake requests the wake pins as both-edge input lines on the GPIO
// character device and sleeps in epoll until one of them reports an edge.
//
// The kernel queues edge events on a requested line while the system is
// suspended, so the edge that resumed the board is delivered after resume.
type GPIOWake struct {
	cfg    WakeConfig
	logger *slog.Logger

	lines  *gpiocdev.Lines
	edgefd int // eventfd raised by the edge handler
}

// NewGPIOWake returns an unarmed wake controller.
func NewGPIOWake(cfg WakeConfig, logger *slog.Logger) *GPIOWake {
	if logger == nil {
		logger = discardLogger()
	}
	return &GPIOWake{cfg: cfg, logger: logger, edgefd: -1}
}

// Arm requests pins with edge detection. onWake runs on the gpiocdev watcher
// goroutine.
func (w *GPIOWake) Arm(pins []int, onWake func()) error {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return fmt.Errorf("eventfd: %w", err)
	}
	w.edgefd = fd

	handler := func(evt gpiocdev.LineEvent) {
		if onWake != nil {
			onWake()
		}
		raiseEventfd(fd)
	}
	lines, err := gpiocdev.RequestLines(w.cfg.GPIOChip, pins,
		gpiocdev.WithConsumer(wakeConsumer),
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		return fmt.Errorf("request wake lines %v on %s: %w", pins, w.cfg.GPIOChip, err)
	}
	w.lines = lines
	w.logger.Debug("wake armed", "chip", w.cfg.GPIOChip, "pins", pins)
	return nil
}

// Disarm releases the lines and the eventfd, including after a failed Arm.
func (w *GPIOWake) Disarm() error {
	var err error
	if w.lines != nil {
		// Close returns after the watcher goroutine has exited, so the
		// handler can no longer touch edgefd.
		if cerr := w.lines.Close(); cerr != nil {
			err = fmt.Errorf("release wake lines: %w", cerr)
		}
		w.lines = nil
	}
	if w.edgefd >= 0 {
		unix.Close(w.edgefd)
		w.edgefd = -1
	}
	return err
}

// Sleep suspends into the deepest permitted mode, then blocks in epoll until
// an armed line reports an edge or ctx is canceled.
func (w *GPIOWake) Sleep(ctx context.Context) error {
	if w.lines == nil || w.edgefd < 0 {
		return errors.New("sleep without armed wake sources")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	// Shutdown eventfd: process exit must not hang in epoll_wait forever.
	stopfd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return fmt.Errorf("eventfd: %w", err)
	}
	defer unix.Close(stopfd)

	for _, fd := range []int{w.edgefd, stopfd} {
		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { raiseEventfd(stopfd) })
	defer stop()

	events := make([]unix.EpollEvent, 2)

	// An edge may have arrived since Arm; don't suspend over it.
	if n, _ := unix.EpollWait(epfd, events, 0); n == 0 {
		w.suspend()
	}

	for {
		n, err := unix.EpollWait(epfd, events, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			if int(events[i].Fd) == stopfd {
				return ctx.Err()
			}
		}
		if n > 0 {
			return nil
		}
	}
}

// suspend writes the chosen mode to the power state file. It returns after
// resume; failures only mean we stay in plain epoll idle.
func (w *GPIOWake) suspend() {
	if w.cfg.Mode == SleepModeNone {
		return
	}
	available, err := os.ReadFile(w.cfg.PowerStatePath)
	if err != nil {
		w.logger.Warn("power states unavailable; idling in epoll", "error", err)
		return
	}
	mode := deepestSleepMode(string(available), w.cfg.Mode)
	if mode == "" {
		w.logger.Warn("no usable low-power mode; idling in epoll", "available", string(available), "requested", w.cfg.Mode)
		return
	}
	w.logger.Debug("suspending", "mode", mode)
	if err := os.WriteFile(w.cfg.PowerStatePath, []byte(mode), 0); err != nil {
		w.logger.Warn("suspend failed; idling in epoll", "mode", mode, "error", err)
	}
}

func raiseEventfd(fd int) {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(fd, buf[:])
}
