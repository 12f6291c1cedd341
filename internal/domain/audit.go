package domain

import (
	"errors"
	"strings"
	"time"
)

// AuditEntry is one immutable record in a plan's state history. Entries are
// created only as the side effect of a committed transition (or an audit-only
// alert) and are never updated or deleted.
type AuditEntry struct {
	ID              int64
	PlanID          string
	PreviousState   PlanState
	NewState        PlanState
	Actor           string
	ActorRole       Role
	Comment         string
	OccurredAt      time.Time
	Payload         Metadata
	IntegritySHA256 string
}

func (e AuditEntry) Validate() error {
	if strings.TrimSpace(e.PlanID) == "" {
		return errors.New("audit entry plan id is required")
	}
	if !e.PreviousState.Valid() {
		return errors.New("audit entry previous state is not in the catalog")
	}
	if !e.NewState.Valid() {
		return errors.New("audit entry new state is not in the catalog")
	}
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("audit entry actor is required")
	}
	if !e.ActorRole.Valid() {
		return errors.New("audit entry actor role is unknown")
	}
	if e.OccurredAt.IsZero() {
		return errors.New("audit entry timestamp is required")
	}
	return nil
}
