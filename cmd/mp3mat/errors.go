package main

import "errors"

// Error types for the collaborator boundaries.
var (
	// ErrBusy is returned by the audio service when it cannot start a track right now.
	ErrBusy = errors.New("audio device busy")

	// ErrNoDirectory means no directory is registered for a selector position.
	ErrNoDirectory = errors.New("no directory registered for position")

	// ErrNoTrack means the requested track slot is empty or out of range.
	ErrNoTrack = errors.New("no track in slot")

	// ErrUnsupported is returned by hardware backends on platforms they cannot drive.
	ErrUnsupported = errors.New("unsupported on this platform")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)
