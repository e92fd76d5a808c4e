package relay

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseIdle, PhaseStreaming, true},
		{PhaseIdle, PhaseInterrupting, false},
		{PhaseStreaming, PhaseInterrupting, true},
		{PhaseStreaming, PhaseIdle, true},
		{PhaseInterrupting, PhaseIdle, true},
		{PhaseInterrupting, PhaseStreaming, false},
		{PhaseIdle, PhaseIdle, false},
	}
	for _, tc := range cases {
		if got := transitionValid(tc.from, tc.to); got != tc.ok {
			t.Fatalf("transition %s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestInvalidTransitionError(t *testing.T) {
	st := NewCallState()
	err := st.transitionLocked(PhaseInterrupting)
	if err == nil {
		t.Fatalf("expected error for IDLE -> INTERRUPTING")
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if st.Phase() != PhaseIdle {
		t.Fatalf("rejected transition must not change phase")
	}
}
