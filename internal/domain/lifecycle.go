package domain

import "fmt"

// planTransitions is the lifecycle transition table, built once and never
// mutated. Terminal states map to an empty set and reject every request.
// The not_received self edge models repeated automatic re-evaluation.
var planTransitions = map[PlanState][]PlanState{
	StateDraft:     {StateSubmitted, StateSignatureProcess},
	StateSubmitted: {StateSignatureProcess, StateInReview},

	// Main flow.
	StateSignatureProcess: {StateSignedSent, StateEthicsViolation},
	StateSignedSent:       {StateNotReceived, StateAwaitingApproval},
	StateAwaitingApproval: {StateAdjustmentsRequested, StateInFilingQueue},
	StateInFilingQueue:    {StateFiled, StateRejected},
	StateFiled:            {StatePlanReevaluated},
	StatePlanReevaluated:  {StateClosed},

	// Exception flow.
	StateNotReceived:           {StateClarification, StateNotReceived},
	StateClarification:         {StateEvaluationReevaluated, StateAwaitingApproval},
	StateEvaluationReevaluated: {StateClosed},
	StateAdjustmentsRequested:  {StateAwaitingApproval, StateInFilingQueue},
	StateRejected:              {StateCancellationFiled},
	StateCancellationFiled:     {StateClosed},
	StateEthicsViolation:       {StateClosed},

	// Legacy flow.
	StateInReview:             {StateNeedsAdjustments, StateApproved, StateRejected},
	StateNeedsAdjustments:     {StateSubmitted},
	StateApproved:             {StateClosed},
	StateDocumentsReevaluated: {StateClosed},

	StateClosed: {},
}

// CanTransition returns true when the table allows from -> to.
func CanTransition(from, to PlanState) bool {
	for _, candidate := range planTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// NextStates returns a copy of the states reachable directly from the given
// state. Terminal and unknown states yield an empty slice.
func NextStates(from PlanState) []PlanState {
	allowed := planTransitions[from]
	out := make([]PlanState, len(allowed))
	copy(out, allowed)
	return out
}

// ValidateTransition ensures both states are catalogued and the edge exists.
func ValidateTransition(from, to PlanState) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown plan state in transition %q -> %q", from, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("plan state transition %q -> %q not allowed", from, to)
	}
	return nil
}
