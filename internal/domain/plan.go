package domain

import (
	"errors"
	"strings"
	"time"
)

// Plan is an improvement plan a supplier must submit after a low evaluation
// score. State changes go exclusively through the workflow service; Version
// backs the optimistic concurrency check on every transition commit.
type Plan struct {
	ID           string
	SupplierID   string
	EvaluationID string
	State        PlanState
	Version      int64

	// Narrative content, opaque to the engine.
	RootCauseAnalysis  string
	ProposedActions    string
	Responsible        string
	ImplementationDate *time.Time
	TrackingIndicators string

	CreatedAt   time.Time
	SubmittedAt *time.Time
	Deadline    *time.Time

	// Cover-letter tracking (process_of_signatures / signed_and_sent).
	LetterObjectKey string
	LetterSentAt    *time.Time
	SentAt          *time.Time

	// Review and filing.
	ReviewedAt   *time.Time
	ReviewedBy   string
	FilingNumber string
	FiledAt      *time.Time

	// Exception-path fields.
	RejectionReason     string
	ClarificationAt     *time.Time
	ClarificationNotes  string
	DaysWithoutResponse int
	Suspended           bool
	SuspendedAt         *time.Time

	CompletedAt *time.Time
}

func (p Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("plan id is required")
	}
	if strings.TrimSpace(p.SupplierID) == "" {
		return errors.New("supplier id is required")
	}
	if strings.TrimSpace(p.EvaluationID) == "" {
		return errors.New("evaluation id is required")
	}
	if !p.State.Valid() {
		return errors.New("plan state is not in the catalog")
	}
	return nil
}

// Expired reports whether the deadline passed while the plan is still open.
func (p Plan) Expired(now time.Time) bool {
	if p.Deadline == nil || p.State.Terminal() {
		return false
	}
	return now.After(*p.Deadline)
}
