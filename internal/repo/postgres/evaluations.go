package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

type EvaluationStore struct {
	db DB
}

func NewEvaluationStore(db DB) *EvaluationStore {
	if db == nil {
		return nil
	}
	return &EvaluationStore{db: db}
}

func (s *EvaluationStore) Create(ctx context.Context, evaluation domain.Evaluation) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("evaluation store not initialized")
	}
	if err := evaluation.Validate(); err != nil {
		return err
	}
	createdAt := normalizeTime(evaluation.CreatedAt)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO evaluations (
			evaluation_id,
			supplier_id,
			period,
			contract_number,
			contract_type,
			score,
			evaluated_at,
			plan_deadline,
			observations,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		strings.TrimSpace(evaluation.ID),
		strings.TrimSpace(evaluation.SupplierID),
		nullIfEmpty(evaluation.Period),
		nullIfEmpty(evaluation.ContractNumber),
		nullIfEmpty(evaluation.ContractType),
		evaluation.Score,
		evaluation.EvaluatedAt.UTC(),
		nullTimePtr(evaluation.PlanDeadline),
		nullIfEmpty(evaluation.Observations),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (s *EvaluationStore) Get(ctx context.Context, id string) (domain.Evaluation, error) {
	if s == nil || s.db == nil {
		return domain.Evaluation{}, fmt.Errorf("evaluation store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Evaluation{}, fmt.Errorf("evaluation id is required")
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT evaluation_id, supplier_id, period, contract_number, contract_type, score,
			evaluated_at, plan_deadline, observations, created_at
		 FROM evaluations WHERE evaluation_id = $1`,
		id,
	)
	evaluation, err := scanEvaluation(row)
	if err != nil {
		return domain.Evaluation{}, handleNotFound(err)
	}
	return evaluation, nil
}

func (s *EvaluationStore) List(ctx context.Context, filter repo.EvaluationFilter) ([]domain.Evaluation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("evaluation store not initialized")
	}
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if strings.TrimSpace(filter.SupplierID) != "" {
		args = append(args, strings.TrimSpace(filter.SupplierID))
		clauses = append(clauses, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if strings.TrimSpace(filter.Period) != "" {
		args = append(args, strings.TrimSpace(filter.Period))
		clauses = append(clauses, fmt.Sprintf("period = $%d", len(args)))
	}
	if filter.MaxScore > 0 {
		args = append(args, filter.MaxScore)
		clauses = append(clauses, fmt.Sprintf("score <= $%d", len(args)))
	}
	query := `SELECT evaluation_id, supplier_id, period, contract_number, contract_type, score,
		evaluated_at, plan_deadline, observations, created_at
		FROM evaluations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY evaluated_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := make([]domain.Evaluation, 0)
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		evaluations = append(evaluations, evaluation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

func scanEvaluation(row rowScanner) (domain.Evaluation, error) {
	var evaluation domain.Evaluation
	var period, contractNumber, contractType, observations sql.NullString
	var planDeadline sql.NullTime
	if err := row.Scan(&evaluation.ID, &evaluation.SupplierID, &period, &contractNumber, &contractType,
		&evaluation.Score, &evaluation.EvaluatedAt, &planDeadline, &observations, &evaluation.CreatedAt); err != nil {
		return domain.Evaluation{}, err
	}
	evaluation.Period = period.String
	evaluation.ContractNumber = contractNumber.String
	evaluation.ContractType = contractType.String
	evaluation.Observations = observations.String
	evaluation.PlanDeadline = timePtr(planDeadline)
	evaluation.EvaluatedAt = evaluation.EvaluatedAt.UTC()
	evaluation.CreatedAt = evaluation.CreatedAt.UTC()
	return evaluation, nil
}
