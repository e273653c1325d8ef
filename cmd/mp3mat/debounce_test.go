package main

import "testing"

// TestDebounce_TransitionTable covers every (state, level) pair for an
// active-low switch.
func TestDebounce_TransitionTable(t *testing.T) {
	tests := []struct {
		prev      SwitchState
		level     Level
		wantState SwitchState
		wantEdge  bool
	}{
		{SwitchIdle, Low, SwitchPressed, true},
		{SwitchPressed, Low, SwitchPressed, false},
		{SwitchIdle, High, SwitchIdle, false},
		{SwitchPressed, High, SwitchIdle, false},
	}
	for _, tt := range tests {
		state, edge := Debounce(tt.prev, tt.level, Low)
		if state != tt.wantState || edge != tt.wantEdge {
			t.Errorf("Debounce(%v, %v, Low) = (%v, %v), want (%v, %v)",
				tt.prev, tt.level, state, edge, tt.wantState, tt.wantEdge)
		}
	}
}

// TestSwitch_HeldProducesOneEdge tests that a long hold fires exactly once
// and a release re-arms the switch.
func TestSwitch_HeldProducesOneEdge(t *testing.T) {
	s := Switch{Pin: 23, Trigger: Low}

	levels := []Level{High, Low, Low, Low, Low, High, High, Low, High}
	edges := 0
	for _, l := range levels {
		if s.Sample(l) {
			edges++
		}
	}
	if edges != 2 {
		t.Fatalf("expected 2 edges (two presses), got %d", edges)
	}
	if s.State != SwitchIdle {
		t.Errorf("expected idle after release, got %v", s.State)
	}
}

// TestSwitch_ActiveHigh tests a switch whose pressed level is High.
func TestSwitch_ActiveHigh(t *testing.T) {
	s := Switch{Pin: 24, Trigger: High}
	if s.Sample(Low) {
		t.Fatal("low level must not fire an active-high switch")
	}
	if !s.Sample(High) {
		t.Fatal("expected edge on first high level")
	}
	if s.Sample(High) {
		t.Fatal("expected no edge while held")
	}
}
