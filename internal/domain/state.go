package domain

import "strings"

// PlanState is the lifecycle state of an improvement plan. The set is closed;
// unknown strings never become states.
type PlanState string

const (
	// Initial states.
	StateDraft     PlanState = "draft"
	StateSubmitted PlanState = "submitted"

	// Main flow.
	StateSignatureProcess PlanState = "process_of_signatures"
	StateSignedSent       PlanState = "signed_and_sent"
	StateAwaitingApproval PlanState = "awaiting_approval"
	StateInFilingQueue    PlanState = "in_filing_queue"
	StateFiled            PlanState = "filed"
	StatePlanReevaluated  PlanState = "plan_reevaluated"

	// Exception flow.
	StateNotReceived           PlanState = "not_received"
	StateClarification         PlanState = "clarification"
	StateEvaluationReevaluated PlanState = "evaluation_reevaluated"
	StateAdjustmentsRequested  PlanState = "adjustments_requested"
	StateRejected              PlanState = "rejected"
	StateCancellationFiled     PlanState = "cancellation_filed"
	StateEthicsViolation       PlanState = "ethics_violation"

	// Legacy states kept for plans created before the current flow.
	StateInReview             PlanState = "in_review"
	StateNeedsAdjustments     PlanState = "needs_adjustments"
	StateApproved             PlanState = "approved"
	StateDocumentsReevaluated PlanState = "documents_reevaluated"

	// Terminal state.
	StateClosed PlanState = "closed"
)

// Flow classifies a state within the lifecycle diagram.
type Flow string

const (
	FlowInitial   Flow = "initial"
	FlowMain      Flow = "main"
	FlowException Flow = "exception"
	FlowLegacy    Flow = "legacy"
	FlowTerminal  Flow = "terminal"
)

var stateFlows = map[PlanState]Flow{
	StateDraft:     FlowInitial,
	StateSubmitted: FlowInitial,

	StateSignatureProcess: FlowMain,
	StateSignedSent:       FlowMain,
	StateAwaitingApproval: FlowMain,
	StateInFilingQueue:    FlowMain,
	StateFiled:            FlowMain,
	StatePlanReevaluated:  FlowMain,

	StateNotReceived:           FlowException,
	StateClarification:         FlowException,
	StateEvaluationReevaluated: FlowException,
	StateAdjustmentsRequested:  FlowException,
	StateRejected:              FlowException,
	StateCancellationFiled:     FlowException,
	StateEthicsViolation:       FlowException,

	StateInReview:             FlowLegacy,
	StateNeedsAdjustments:     FlowLegacy,
	StateApproved:             FlowLegacy,
	StateDocumentsReevaluated: FlowLegacy,

	StateClosed: FlowTerminal,
}

// States requiring active follow-up; the deadline scan only considers these.
var activeStates = map[PlanState]bool{
	StateSignatureProcess:     true,
	StateSignedSent:           true,
	StateNotReceived:          true,
	StateClarification:        true,
	StateAwaitingApproval:     true,
	StateAdjustmentsRequested: true,
	StateInFilingQueue:        true,
}

// States that stamp the completion timestamp on entry.
var completionStates = map[PlanState]bool{
	StatePlanReevaluated:       true,
	StateEvaluationReevaluated: true,
	StateApproved:              true,
	StateClosed:                true,
}

func (s PlanState) Valid() bool {
	_, ok := stateFlows[s]
	return ok
}

func (s PlanState) Flow() Flow {
	return stateFlows[s]
}

func (s PlanState) Terminal() bool {
	return len(planTransitions[s]) == 0 && s.Valid()
}

func (s PlanState) Active() bool {
	return activeStates[s]
}

func (s PlanState) StampsCompletion() bool {
	return completionStates[s]
}

// NormalizeState maps free-form input onto a catalog state, or "" if unknown.
func NormalizeState(raw string) PlanState {
	candidate := PlanState(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate
	}
	return ""
}

// AllStates returns every catalog state. The order is unspecified.
func AllStates() []PlanState {
	out := make([]PlanState, 0, len(stateFlows))
	for s := range stateFlows {
		out = append(out, s)
	}
	return out
}
