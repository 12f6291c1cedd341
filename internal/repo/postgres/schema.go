package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the tables the stores expect. Statements are
// idempotent so the call is safe on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
			supplier_id TEXT PRIMARY KEY,
			tax_id TEXT NOT NULL UNIQUE,
			legal_name TEXT NOT NULL,
			email TEXT NOT NULL,
			secondary_email TEXT,
			account_id TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS supplier_accounts (
			account_id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL UNIQUE REFERENCES suppliers(supplier_id),
			username TEXT NOT NULL UNIQUE,
			email TEXT,
			secret_sha256 TEXT NOT NULL,
			must_change_secret BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			evaluation_id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL REFERENCES suppliers(supplier_id),
			period TEXT,
			contract_number TEXT,
			contract_type TEXT,
			score INTEGER NOT NULL,
			evaluated_at TIMESTAMPTZ NOT NULL,
			plan_deadline TIMESTAMPTZ,
			observations TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS plans (
			plan_id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL REFERENCES suppliers(supplier_id),
			evaluation_id TEXT NOT NULL REFERENCES evaluations(evaluation_id),
			state TEXT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			root_cause_analysis TEXT,
			proposed_actions TEXT,
			responsible TEXT,
			implementation_date TIMESTAMPTZ,
			tracking_indicators TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			submitted_at TIMESTAMPTZ,
			deadline TIMESTAMPTZ,
			letter_object_key TEXT,
			letter_sent_at TIMESTAMPTZ,
			sent_at TIMESTAMPTZ,
			reviewed_at TIMESTAMPTZ,
			reviewed_by TEXT,
			filing_number TEXT,
			filed_at TIMESTAMPTZ,
			rejection_reason TEXT,
			clarification_at TIMESTAMPTZ,
			clarification_notes TEXT,
			days_without_response INTEGER NOT NULL DEFAULT 0,
			suspended BOOLEAN NOT NULL DEFAULT FALSE,
			suspended_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,

		`CREATE INDEX IF NOT EXISTS idx_plans_supplier ON plans (supplier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_state ON plans (state)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_state_letter_sent ON plans (state, letter_sent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_state_deadline ON plans (state, deadline)`,

		`CREATE TABLE IF NOT EXISTS plan_state_history (
			entry_id BIGSERIAL PRIMARY KEY,
			plan_id TEXT NOT NULL REFERENCES plans(plan_id),
			previous_state TEXT NOT NULL,
			new_state TEXT NOT NULL,
			actor TEXT NOT NULL,
			actor_role TEXT NOT NULL,
			comment TEXT,
			occurred_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			integrity_sha256 TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_history_plan ON plan_state_history (plan_id, occurred_at DESC)`,

		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			request_id TEXT,
			ip TEXT,
			user_agent TEXT,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			integrity_sha256 TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
