package models

import "testing"

func TestTaskState_Folder(t *testing.T) {
	tests := []struct {
		state  TaskState
		folder string
	}{
		{StateNeedsAction, "Needs_Action"},
		{StatePendingApproval, "Pending_Approval"},
		{StateApproved, "Approved"},
		{StateDone, "Done"},
	}

	for _, tt := range tests {
		if got := tt.state.Folder(); got != tt.folder {
			t.Errorf("Folder(%s) = %s, want %s", tt.state, got, tt.folder)
		}
	}
}

func TestTaskState_Terminal(t *testing.T) {
	if !StateDone.Terminal() {
		t.Error("expected done to be terminal")
	}
	for _, state := range []TaskState{StateNeedsAction, StatePendingApproval, StateApproved} {
		if state.Terminal() {
			t.Errorf("expected %s to be non-terminal", state)
		}
	}
}

func TestAllStates_LifecycleOrder(t *testing.T) {
	states := AllStates()
	want := []TaskState{StateNeedsAction, StatePendingApproval, StateApproved, StateDone}

	if len(states) != len(want) {
		t.Fatalf("expected %d states, got %d", len(want), len(states))
	}
	for i, state := range want {
		if states[i] != state {
			t.Errorf("AllStates()[%d] = %s, want %s", i, states[i], state)
		}
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !ValidPriority(p) {
			t.Errorf("expected %s to be valid", p)
		}
	}
	for _, p := range []Priority{"", "critical", "LOW", "p1"} {
		if ValidPriority(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}
