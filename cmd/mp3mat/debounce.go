package main

// Level is a sampled digital pin level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// SwitchState is the per-switch debounce state.
type SwitchState int

const (
	SwitchIdle SwitchState = iota
	SwitchPressed
)

func (s SwitchState) String() string {
	if s == SwitchPressed {
		return "pressed"
	}
	return "idle"
}

// Debounce is the switch transition function.
//
// It reports an edge only on Idle -> Pressed, so a held switch produces
// exactly one action; any non-trigger level returns the switch to Idle and
// re-arms it for the next press.
func Debounce(prev SwitchState, level, trigger Level) (SwitchState, bool) {
	if level != trigger {
		return SwitchIdle, false
	}
	if prev == SwitchIdle {
		return SwitchPressed, true
	}
	return SwitchPressed, false
}

// Switch binds a GPIO pin to its debounce state.
type Switch struct {
	Pin     int
	Trigger Level
	State   SwitchState
}

// Sample feeds one level reading through Debounce and returns whether it
// produced a press edge.
func (s *Switch) Sample(level Level) bool {
	next, edge := Debounce(s.State, level, s.Trigger)
	s.State = next
	return edge
}
