package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

const planColumns = `plan_id, supplier_id, evaluation_id, state, version,
	root_cause_analysis, proposed_actions, responsible, implementation_date, tracking_indicators,
	created_at, submitted_at, deadline,
	letter_object_key, letter_sent_at, sent_at,
	reviewed_at, reviewed_by, filing_number, filed_at,
	rejection_reason, clarification_at, clarification_notes,
	days_without_response, suspended, suspended_at, completed_at`

type PlanStore struct {
	db TxDB
}

func NewPlanStore(db TxDB) *PlanStore {
	if db == nil {
		return nil
	}
	return &PlanStore{db: db}
}

func (s *PlanStore) Create(ctx context.Context, plan domain.Plan) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("plan store not initialized")
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	createdAt := normalizeTime(plan.CreatedAt)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO plans (`+planColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		strings.TrimSpace(plan.ID),
		strings.TrimSpace(plan.SupplierID),
		strings.TrimSpace(plan.EvaluationID),
		string(plan.State),
		plan.Version,
		nullIfEmpty(plan.RootCauseAnalysis),
		nullIfEmpty(plan.ProposedActions),
		nullIfEmpty(plan.Responsible),
		nullTimePtr(plan.ImplementationDate),
		nullIfEmpty(plan.TrackingIndicators),
		createdAt,
		nullTimePtr(plan.SubmittedAt),
		nullTimePtr(plan.Deadline),
		nullIfEmpty(plan.LetterObjectKey),
		nullTimePtr(plan.LetterSentAt),
		nullTimePtr(plan.SentAt),
		nullTimePtr(plan.ReviewedAt),
		nullIfEmpty(plan.ReviewedBy),
		nullIfEmpty(plan.FilingNumber),
		nullTimePtr(plan.FiledAt),
		nullIfEmpty(plan.RejectionReason),
		nullTimePtr(plan.ClarificationAt),
		nullIfEmpty(plan.ClarificationNotes),
		plan.DaysWithoutResponse,
		plan.Suspended,
		nullTimePtr(plan.SuspendedAt),
		nullTimePtr(plan.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *PlanStore) Get(ctx context.Context, id string) (domain.Plan, error) {
	if s == nil || s.db == nil {
		return domain.Plan{}, fmt.Errorf("plan store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Plan{}, fmt.Errorf("plan id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+planColumns+` FROM plans WHERE plan_id = $1`,
		id,
	)
	plan, err := scanPlan(row)
	if err != nil {
		return domain.Plan{}, handleNotFound(err)
	}
	return plan, nil
}

func (s *PlanStore) List(ctx context.Context, filter repo.PlanFilter) ([]domain.Plan, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("plan store not initialized")
	}
	query, args := buildPlanListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := make([]domain.Plan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// ApplyTransition commits the mutated plan and its history entry in one
// transaction. The version guard makes concurrent writers lose cleanly: the
// stale one gets repo.ErrConflict and nothing is written.
func (s *PlanStore) ApplyTransition(ctx context.Context, plan domain.Plan, expectedVersion int64, entry domain.AuditEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("plan store not initialized")
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := requireIntegrity(entry.IntegritySHA256); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE plans SET
			state = $1,
			version = version + 1,
			root_cause_analysis = $2,
			proposed_actions = $3,
			responsible = $4,
			implementation_date = $5,
			tracking_indicators = $6,
			submitted_at = $7,
			deadline = $8,
			letter_object_key = $9,
			letter_sent_at = $10,
			sent_at = $11,
			reviewed_at = $12,
			reviewed_by = $13,
			filing_number = $14,
			filed_at = $15,
			rejection_reason = $16,
			clarification_at = $17,
			clarification_notes = $18,
			days_without_response = $19,
			suspended = $20,
			suspended_at = $21,
			completed_at = $22
		 WHERE plan_id = $23 AND version = $24`,
		string(plan.State),
		nullIfEmpty(plan.RootCauseAnalysis),
		nullIfEmpty(plan.ProposedActions),
		nullIfEmpty(plan.Responsible),
		nullTimePtr(plan.ImplementationDate),
		nullIfEmpty(plan.TrackingIndicators),
		nullTimePtr(plan.SubmittedAt),
		nullTimePtr(plan.Deadline),
		nullIfEmpty(plan.LetterObjectKey),
		nullTimePtr(plan.LetterSentAt),
		nullTimePtr(plan.SentAt),
		nullTimePtr(plan.ReviewedAt),
		nullIfEmpty(plan.ReviewedBy),
		nullIfEmpty(plan.FilingNumber),
		nullTimePtr(plan.FiledAt),
		nullIfEmpty(plan.RejectionReason),
		nullTimePtr(plan.ClarificationAt),
		nullIfEmpty(plan.ClarificationNotes),
		plan.DaysWithoutResponse,
		plan.Suspended,
		nullTimePtr(plan.SuspendedAt),
		nullTimePtr(plan.CompletedAt),
		strings.TrimSpace(plan.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update plan state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan state: %w", err)
	}
	if affected == 0 {
		var current int64
		scanErr := tx.QueryRowContext(ctx, `SELECT version FROM plans WHERE plan_id = $1`, strings.TrimSpace(plan.ID)).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return repo.ErrNotFound
		}
		return repo.ErrConflict
	}
	if _, err := insertHistoryEntry(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func (s *PlanStore) UpdateNarrative(ctx context.Context, plan domain.Plan, expectedVersion int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("plan store not initialized")
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE plans SET
			root_cause_analysis = $1,
			proposed_actions = $2,
			responsible = $3,
			implementation_date = $4,
			tracking_indicators = $5,
			version = version + 1
		 WHERE plan_id = $6 AND version = $7`,
		nullIfEmpty(plan.RootCauseAnalysis),
		nullIfEmpty(plan.ProposedActions),
		nullIfEmpty(plan.Responsible),
		nullTimePtr(plan.ImplementationDate),
		nullIfEmpty(plan.TrackingIndicators),
		strings.TrimSpace(plan.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update plan narrative: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update plan narrative: %w", err)
	}
	if affected == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (s *PlanStore) UpdateSilenceCounter(ctx context.Context, id string, days int, suspended bool, suspendedAt *time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("plan store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("plan id is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE plans SET days_without_response = $1, suspended = $2, suspended_at = $3 WHERE plan_id = $4`,
		days,
		suspended,
		nullTimePtr(suspendedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update silence counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update silence counter: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func buildPlanListQuery(filter repo.PlanFilter) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if strings.TrimSpace(filter.SupplierID) != "" {
		args = append(args, strings.TrimSpace(filter.SupplierID))
		clauses = append(clauses, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, string(filter.State))
		clauses = append(clauses, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.ActiveOnly {
		args = append(args, activeStateList())
		clauses = append(clauses, fmt.Sprintf("state = ANY($%d)", len(args)))
	}
	if filter.LetterSentBefore != nil {
		args = append(args, filter.LetterSentBefore.UTC())
		clauses = append(clauses, fmt.Sprintf("letter_sent_at IS NOT NULL AND letter_sent_at < $%d", len(args)))
	}
	if filter.DeadlineBefore != nil {
		args = append(args, filter.DeadlineBefore.UTC())
		clauses = append(clauses, fmt.Sprintf("deadline IS NOT NULL AND deadline < $%d", len(args)))
	}

	query := `SELECT ` + planColumns + ` FROM plans`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (domain.Plan, error) {
	var plan domain.Plan
	var state string
	var rootCause, actions, responsible, indicators sql.NullString
	var letterKey, reviewedBy, filingNumber sql.NullString
	var rejection, clarificationNotes sql.NullString
	var implementationDate, submittedAt, deadline sql.NullTime
	var letterSentAt, sentAt, reviewedAt, filedAt sql.NullTime
	var clarificationAt, suspendedAt, completedAt sql.NullTime
	if err := row.Scan(
		&plan.ID, &plan.SupplierID, &plan.EvaluationID, &state, &plan.Version,
		&rootCause, &actions, &responsible, &implementationDate, &indicators,
		&plan.CreatedAt, &submittedAt, &deadline,
		&letterKey, &letterSentAt, &sentAt,
		&reviewedAt, &reviewedBy, &filingNumber, &filedAt,
		&rejection, &clarificationAt, &clarificationNotes,
		&plan.DaysWithoutResponse, &plan.Suspended, &suspendedAt, &completedAt,
	); err != nil {
		return domain.Plan{}, err
	}
	plan.State = domain.PlanState(state)
	plan.RootCauseAnalysis = rootCause.String
	plan.ProposedActions = actions.String
	plan.Responsible = responsible.String
	plan.TrackingIndicators = indicators.String
	plan.LetterObjectKey = letterKey.String
	plan.ReviewedBy = reviewedBy.String
	plan.FilingNumber = filingNumber.String
	plan.RejectionReason = rejection.String
	plan.ClarificationNotes = clarificationNotes.String
	plan.ImplementationDate = timePtr(implementationDate)
	plan.SubmittedAt = timePtr(submittedAt)
	plan.Deadline = timePtr(deadline)
	plan.LetterSentAt = timePtr(letterSentAt)
	plan.SentAt = timePtr(sentAt)
	plan.ReviewedAt = timePtr(reviewedAt)
	plan.FiledAt = timePtr(filedAt)
	plan.ClarificationAt = timePtr(clarificationAt)
	plan.SuspendedAt = timePtr(suspendedAt)
	plan.CompletedAt = timePtr(completedAt)
	plan.CreatedAt = plan.CreatedAt.UTC()
	return plan, nil
}

func activeStateList() []string {
	out := make([]string, 0, 8)
	for _, s := range domain.AllStates() {
		if s.Active() {
			out = append(out, string(s))
		}
	}
	return out
}
