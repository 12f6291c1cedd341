package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

type SupplierStore struct {
	db DB
}

func NewSupplierStore(db DB) *SupplierStore {
	if db == nil {
		return nil
	}
	return &SupplierStore{db: db}
}

func (s *SupplierStore) Create(ctx context.Context, supplier domain.Supplier) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("supplier store not initialized")
	}
	if err := supplier.Validate(); err != nil {
		return err
	}
	createdAt := normalizeTime(supplier.CreatedAt)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO suppliers (
			supplier_id,
			tax_id,
			legal_name,
			email,
			secondary_email,
			account_id,
			active,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		strings.TrimSpace(supplier.ID),
		strings.TrimSpace(supplier.TaxID),
		strings.TrimSpace(supplier.LegalName),
		strings.TrimSpace(supplier.Email),
		nullIfEmpty(supplier.SecondaryEmail),
		nullIfEmpty(supplier.AccountID),
		supplier.Active,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (s *SupplierStore) Get(ctx context.Context, id string) (domain.Supplier, error) {
	if s == nil || s.db == nil {
		return domain.Supplier{}, fmt.Errorf("supplier store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Supplier{}, fmt.Errorf("supplier id is required")
	}
	return s.getWhere(ctx, "supplier_id = $1", id)
}

func (s *SupplierStore) GetByTaxID(ctx context.Context, taxID string) (domain.Supplier, error) {
	if s == nil || s.db == nil {
		return domain.Supplier{}, fmt.Errorf("supplier store not initialized")
	}
	taxID = strings.TrimSpace(taxID)
	if taxID == "" {
		return domain.Supplier{}, fmt.Errorf("supplier tax id is required")
	}
	return s.getWhere(ctx, "tax_id = $1", taxID)
}

func (s *SupplierStore) getWhere(ctx context.Context, clause string, arg any) (domain.Supplier, error) {
	var supplier domain.Supplier
	var secondary, accountID sql.NullString
	row := s.db.QueryRowContext(
		ctx,
		`SELECT supplier_id, tax_id, legal_name, email, secondary_email, account_id, active, created_at
		 FROM suppliers WHERE `+clause,
		arg,
	)
	if err := row.Scan(&supplier.ID, &supplier.TaxID, &supplier.LegalName, &supplier.Email,
		&secondary, &accountID, &supplier.Active, &supplier.CreatedAt); err != nil {
		return domain.Supplier{}, handleNotFound(err)
	}
	supplier.SecondaryEmail = secondary.String
	supplier.AccountID = accountID.String
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return supplier, nil
}

func (s *SupplierStore) List(ctx context.Context, filter repo.SupplierFilter) ([]domain.Supplier, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("supplier store not initialized")
	}
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if strings.TrimSpace(filter.TaxID) != "" {
		args = append(args, strings.TrimSpace(filter.TaxID))
		clauses = append(clauses, fmt.Sprintf("tax_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active = $%d", len(args)))
	}
	query := `SELECT supplier_id, tax_id, legal_name, email, secondary_email, account_id, active, created_at FROM suppliers`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0)
	for rows.Next() {
		var supplier domain.Supplier
		var secondary, accountID sql.NullString
		if err := rows.Scan(&supplier.ID, &supplier.TaxID, &supplier.LegalName, &supplier.Email,
			&secondary, &accountID, &supplier.Active, &supplier.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		supplier.SecondaryEmail = secondary.String
		supplier.AccountID = accountID.String
		supplier.CreatedAt = supplier.CreatedAt.UTC()
		suppliers = append(suppliers, supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *SupplierStore) AttachAccount(ctx context.Context, supplierID, accountID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("supplier store not initialized")
	}
	supplierID = strings.TrimSpace(supplierID)
	accountID = strings.TrimSpace(accountID)
	if supplierID == "" || accountID == "" {
		return fmt.Errorf("supplier id and account id are required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE suppliers SET account_id = $1 WHERE supplier_id = $2 AND account_id IS NULL`,
		accountID,
		supplierID,
	)
	if err != nil {
		return fmt.Errorf("attach account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach account: %w", err)
	}
	if affected == 0 {
		return repo.ErrConflict
	}
	return nil
}
