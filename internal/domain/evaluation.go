package domain

import (
	"errors"
	"strings"
	"time"
)

// Evaluation is a supplier performance evaluation. The workflow reads it to
// decide whether a plan is required; it never mutates one. Score breakdown
// arithmetic lives outside this service.
type Evaluation struct {
	ID             string
	SupplierID     string
	Period         string
	ContractNumber string
	ContractType   string
	Score          int
	EvaluatedAt    time.Time
	PlanDeadline   *time.Time
	Observations   string
	CreatedAt      time.Time
}

func (e Evaluation) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("evaluation id is required")
	}
	if strings.TrimSpace(e.SupplierID) == "" {
		return errors.New("evaluation supplier id is required")
	}
	if e.Score < 0 || e.Score > 100 {
		return errors.New("evaluation score must be between 0 and 100")
	}
	if e.EvaluatedAt.IsZero() {
		return errors.New("evaluation date is required")
	}
	return nil
}

// RequiresPlan reports whether the score falls below the passing threshold.
func (e Evaluation) RequiresPlan(passingScore int) bool {
	return e.Score < passingScore
}
