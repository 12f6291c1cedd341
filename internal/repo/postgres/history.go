package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/mejora-labs/mejora-go/internal/domain"
)

type HistoryStore struct {
	db DB
}

func NewHistoryStore(db DB) *HistoryStore {
	if db == nil {
		return nil
	}
	return &HistoryStore{db: db}
}

// AppendAlert records an informational same-state entry, such as a deadline
// warning. Transition entries are written only inside ApplyTransition.
func (s *HistoryStore) AppendAlert(ctx context.Context, entry domain.AuditEntry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("history store not initialized")
	}
	if entry.PreviousState != entry.NewState {
		return 0, fmt.Errorf("alert entry must keep the plan state unchanged")
	}
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	if err := requireIntegrity(entry.IntegritySHA256); err != nil {
		return 0, err
	}
	return insertHistoryEntry(ctx, s.db, entry)
}

func (s *HistoryStore) ListByPlan(ctx context.Context, planID string, limit int) ([]domain.AuditEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history store not initialized")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, fmt.Errorf("plan id is required")
	}
	query := `SELECT entry_id, plan_id, previous_state, new_state, actor, actor_role, comment, occurred_at, payload, integrity_sha256
		FROM plan_state_history
		WHERE plan_id = $1
		ORDER BY occurred_at DESC, entry_id DESC`
	args := []any{planID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plan history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		var previous, next, role string
		var payloadJSON []byte
		if err := rows.Scan(&entry.ID, &entry.PlanID, &previous, &next, &entry.Actor, &role,
			&entry.Comment, &entry.OccurredAt, &payloadJSON, &entry.IntegritySHA256); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.PreviousState = domain.PlanState(previous)
		entry.NewState = domain.PlanState(next)
		entry.ActorRole = domain.Role(role)
		entry.OccurredAt = entry.OccurredAt.UTC()
		payload, err := decodeMetadata(payloadJSON)
		if err != nil {
			return nil, fmt.Errorf("decode history payload: %w", err)
		}
		entry.Payload = payload
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plan history: %w", err)
	}
	return entries, nil
}

func insertHistoryEntry(ctx context.Context, db DB, entry domain.AuditEntry) (int64, error) {
	payloadJSON, err := encodeMetadata(entry.Payload)
	if err != nil {
		return 0, fmt.Errorf("encode history payload: %w", err)
	}
	occurredAt := normalizeTime(entry.OccurredAt)
	var id int64
	err = db.QueryRowContext(
		ctx,
		`INSERT INTO plan_state_history (
			plan_id,
			previous_state,
			new_state,
			actor,
			actor_role,
			comment,
			occurred_at,
			payload,
			integrity_sha256
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING entry_id`,
		strings.TrimSpace(entry.PlanID),
		string(entry.PreviousState),
		string(entry.NewState),
		strings.TrimSpace(entry.Actor),
		string(entry.ActorRole),
		strings.TrimSpace(entry.Comment),
		occurredAt,
		payloadJSON,
		strings.TrimSpace(entry.IntegritySHA256),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	return id, nil
}
