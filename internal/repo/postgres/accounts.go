package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	if db == nil {
		return nil
	}
	return &AccountStore{db: db}
}

// Create inserts a provisioned login identity. A username collision comes
// back as repo.ErrConflict so the provisioner can treat it as a warning.
func (s *AccountStore) Create(ctx context.Context, account domain.SupplierAccount) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("account store not initialized")
	}
	if err := account.Validate(); err != nil {
		return err
	}
	createdAt := normalizeTime(account.CreatedAt)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO supplier_accounts (
			account_id,
			supplier_id,
			username,
			email,
			secret_sha256,
			must_change_secret,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		strings.TrimSpace(account.ID),
		strings.TrimSpace(account.SupplierID),
		strings.TrimSpace(account.Username),
		nullIfEmpty(account.Email),
		strings.TrimSpace(account.SecretSHA256),
		account.MustChangeSecret,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetByUsername(ctx context.Context, username string) (domain.SupplierAccount, error) {
	if s == nil || s.db == nil {
		return domain.SupplierAccount{}, fmt.Errorf("account store not initialized")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.SupplierAccount{}, fmt.Errorf("username is required")
	}
	return s.getWhere(ctx, "username = $1", username)
}

func (s *AccountStore) GetBySupplier(ctx context.Context, supplierID string) (domain.SupplierAccount, error) {
	if s == nil || s.db == nil {
		return domain.SupplierAccount{}, fmt.Errorf("account store not initialized")
	}
	supplierID = strings.TrimSpace(supplierID)
	if supplierID == "" {
		return domain.SupplierAccount{}, fmt.Errorf("supplier id is required")
	}
	return s.getWhere(ctx, "supplier_id = $1", supplierID)
}

func (s *AccountStore) getWhere(ctx context.Context, clause string, arg any) (domain.SupplierAccount, error) {
	var account domain.SupplierAccount
	var email sql.NullString
	row := s.db.QueryRowContext(
		ctx,
		`SELECT account_id, supplier_id, username, email, secret_sha256, must_change_secret, created_at
		 FROM supplier_accounts WHERE `+clause,
		arg,
	)
	if err := row.Scan(&account.ID, &account.SupplierID, &account.Username, &email,
		&account.SecretSHA256, &account.MustChangeSecret, &account.CreatedAt); err != nil {
		return domain.SupplierAccount{}, handleNotFound(err)
	}
	account.Email = email.String
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}
