package repo

import (
	"context"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
)

type PlanFilter struct {
	SupplierID string
	State      domain.PlanState
	ActiveOnly bool
	// LetterSentBefore keeps only plans whose cover letter was sent strictly
	// before the given instant. Used by the silence scan.
	LetterSentBefore *time.Time
	// DeadlineBefore keeps only plans whose deadline falls before the given
	// instant. Used by the deadline alert scan.
	DeadlineBefore *time.Time
	Limit          int
}

type SupplierFilter struct {
	TaxID  string
	Active *bool
	Limit  int
}

type EvaluationFilter struct {
	SupplierID string
	Period     string
	// MaxScore keeps only evaluations with score at or below the value.
	// Zero means no cap.
	MaxScore int
	Limit    int
}

// PlanRepository manages improvement plans. State changes go through
// ApplyTransition only, which persists the new state and its history entry as
// one atomic unit guarded by the plan's version.
type PlanRepository interface {
	Create(ctx context.Context, plan domain.Plan) error
	Get(ctx context.Context, id string) (domain.Plan, error)
	List(ctx context.Context, filter PlanFilter) ([]domain.Plan, error)

	// ApplyTransition writes the plan's mutated fields and appends the
	// history entry in a single transaction. The update is guarded by
	// expectedVersion; a stale version yields ErrConflict and no write.
	ApplyTransition(ctx context.Context, plan domain.Plan, expectedVersion int64, entry domain.AuditEntry) error

	// UpdateNarrative persists the editable plan body without touching state.
	// Guarded by the same optimistic version check as ApplyTransition.
	UpdateNarrative(ctx context.Context, plan domain.Plan, expectedVersion int64) error

	// UpdateSilenceCounter stores the recomputed days-without-response value
	// and the suspension flag for a plan.
	UpdateSilenceCounter(ctx context.Context, id string, days int, suspended bool, suspendedAt *time.Time) error
}

// HistoryRepository reads the append-only transition trail and accepts
// same-state alert entries that are not tied to a transition.
type HistoryRepository interface {
	// AppendAlert records an informational entry whose previous and new
	// state are equal. Real transitions are appended by ApplyTransition.
	AppendAlert(ctx context.Context, entry domain.AuditEntry) (int64, error)

	// ListByPlan returns entries newest first.
	ListByPlan(ctx context.Context, planID string, limit int) ([]domain.AuditEntry, error)
}

// SupplierRepository manages supplier master data.
type SupplierRepository interface {
	Create(ctx context.Context, supplier domain.Supplier) error
	Get(ctx context.Context, id string) (domain.Supplier, error)
	GetByTaxID(ctx context.Context, taxID string) (domain.Supplier, error)
	List(ctx context.Context, filter SupplierFilter) ([]domain.Supplier, error)

	// AttachAccount links a provisioned login account to the supplier.
	AttachAccount(ctx context.Context, supplierID, accountID string) error
}

// AccountRepository manages provisioned supplier login identities.
// Usernames are unique; a colliding Create returns ErrConflict.
type AccountRepository interface {
	Create(ctx context.Context, account domain.SupplierAccount) error
	GetByUsername(ctx context.Context, username string) (domain.SupplierAccount, error)
	GetBySupplier(ctx context.Context, supplierID string) (domain.SupplierAccount, error)
}

// EvaluationRepository manages supplier performance evaluations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation domain.Evaluation) error
	Get(ctx context.Context, id string) (domain.Evaluation, error)
	List(ctx context.Context, filter EvaluationFilter) ([]domain.Evaluation, error)
}
