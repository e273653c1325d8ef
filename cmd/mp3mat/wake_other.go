//go:build !linux

package main

import (
	"context"
	"log/slog"
)

// GPIOWake is only functional on Linux.
type GPIOWake struct{}

func NewGPIOWake(cfg WakeConfig, logger *slog.Logger) *GPIOWake { return &GPIOWake{} }

func (w *GPIOWake) Arm(pins []int, onWake func()) error { return ErrUnsupported }
func (w *GPIOWake) Disarm() error                       { return nil }
func (w *GPIOWake) Sleep(ctx context.Context) error     { return ErrUnsupported }
