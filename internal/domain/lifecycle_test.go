package domain

import "testing"

func TestTerminalStatesRejectEveryTarget(t *testing.T) {
	for _, from := range AllStates() {
		if !from.Terminal() {
			continue
		}
		for _, to := range AllStates() {
			if CanTransition(from, to) {
				t.Fatalf("terminal state %s must not reach %s", from, to)
			}
		}
	}
}

func TestClosedIsTheOnlyTerminalState(t *testing.T) {
	terminal := make([]PlanState, 0, 1)
	for _, s := range AllStates() {
		if s.Terminal() {
			terminal = append(terminal, s)
		}
	}
	if len(terminal) != 1 || terminal[0] != StateClosed {
		t.Fatalf("expected closed as the sole terminal state, got %v", terminal)
	}
}

func TestMainFlowEdges(t *testing.T) {
	cases := []struct {
		from, to PlanState
		allowed  bool
	}{
		{StateDraft, StateSignatureProcess, true},
		{StateDraft, StateSubmitted, true},
		{StateDraft, StateSignedSent, false},
		{StateSignatureProcess, StateSignedSent, true},
		{StateSignatureProcess, StateEthicsViolation, true},
		{StateSignedSent, StateNotReceived, true},
		{StateSignedSent, StateAwaitingApproval, true},
		{StateAwaitingApproval, StateInFilingQueue, true},
		{StateInFilingQueue, StateFiled, true},
		{StateInFilingQueue, StateRejected, true},
		{StateRejected, StateCancellationFiled, true},
		{StateFiled, StatePlanReevaluated, true},
		{StatePlanReevaluated, StateClosed, true},
		{StateFiled, StateClosed, false},
		{StateAwaitingApproval, StateFiled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestNotReceivedIsTheOnlySelfEdge(t *testing.T) {
	for _, s := range AllStates() {
		want := s == StateNotReceived
		if got := CanTransition(s, s); got != want {
			t.Fatalf("self edge on %s = %v, want %v", s, got, want)
		}
	}
}

func TestNextStatesReturnsCopy(t *testing.T) {
	first := NextStates(StateDraft)
	if len(first) != 2 {
		t.Fatalf("expected two states reachable from draft, got %v", first)
	}
	first[0] = StateClosed
	second := NextStates(StateDraft)
	if second[0] == StateClosed {
		t.Fatalf("NextStates must not expose the internal table")
	}
}

func TestValidateTransitionUnknownState(t *testing.T) {
	if err := ValidateTransition(PlanState("bogus"), StateClosed); err == nil {
		t.Fatalf("expected unknown state to be rejected")
	}
	if err := ValidateTransition(StateDraft, PlanState("bogus")); err == nil {
		t.Fatalf("expected unknown target to be rejected")
	}
}

func TestNormalizeState(t *testing.T) {
	if got := NormalizeState("  Signed_And_Sent "); got != StateSignedSent {
		t.Fatalf("expected normalization, got %q", got)
	}
	if got := NormalizeState("nope"); got != "" {
		t.Fatalf("expected empty state for unknown input, got %q", got)
	}
}

func TestLegacyStatesKeepTheirEdges(t *testing.T) {
	if !CanTransition(StateInReview, StateApproved) {
		t.Fatalf("legacy in_review must still reach approved")
	}
	if !CanTransition(StateNeedsAdjustments, StateSubmitted) {
		t.Fatalf("legacy needs_adjustments must still reach submitted")
	}
	if StateApproved.Flow() != FlowLegacy {
		t.Fatalf("approved should be classified legacy")
	}
}
