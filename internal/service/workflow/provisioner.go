package workflow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/platform/auditlog"
	"github.com/mejora-labs/mejora-go/internal/platform/metrics"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

// CredentialNotifier delivers the one-time secret to the supplier. The
// plaintext exists only for the duration of this call; the store keeps a
// digest.
type CredentialNotifier interface {
	DeliverCredentials(ctx context.Context, supplier domain.Supplier, username, secret string) error
}

// NoopNotifier drops credentials. Used when no delivery channel is wired.
type NoopNotifier struct{}

func (NoopNotifier) DeliverCredentials(ctx context.Context, supplier domain.Supplier, username, secret string) error {
	return nil
}

// AutoProvisioner creates a login identity for the supplier the first time
// one of its plans reaches signed_and_sent. It runs as a post-commit hook, so
// a provisioning failure never rolls back the transition.
type AutoProvisioner struct {
	accounts  repo.AccountRepository
	suppliers repo.SupplierRepository
	audit     auditlog.QueryRower
	notifier  CredentialNotifier
	logger    *slog.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

func NewAutoProvisioner(accounts repo.AccountRepository, suppliers repo.SupplierRepository, audit auditlog.QueryRower, notifier CredentialNotifier, logger *slog.Logger) *AutoProvisioner {
	if accounts == nil || suppliers == nil {
		return nil
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoProvisioner{
		accounts:  accounts,
		suppliers: suppliers,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *AutoProvisioner) WithMetrics(reg *metrics.Registry) *AutoProvisioner {
	p.metrics = reg
	return p
}

func (p *AutoProvisioner) AfterTransition(ctx context.Context, plan domain.Plan, entry domain.AuditEntry) error {
	if plan.State != domain.StateSignedSent {
		return nil
	}
	supplier, err := p.suppliers.Get(ctx, plan.SupplierID)
	if err != nil {
		return fmt.Errorf("load supplier %s: %w", plan.SupplierID, err)
	}
	if supplier.AccountID != "" {
		return nil
	}
	if _, err := p.accounts.GetBySupplier(ctx, supplier.ID); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("check existing account: %w", err)
	}

	secret, digest, err := newSecret()
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}
	account := domain.SupplierAccount{
		ID:               uuid.NewString(),
		SupplierID:       supplier.ID,
		Username:         supplier.TaxID,
		Email:            supplier.Email,
		SecretSHA256:     digest,
		MustChangeSecret: true,
		CreatedAt:        p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			// Username already taken, usually by a concurrent provisioning
			// of the same supplier. Warn and move on.
			p.logger.Warn("account username collision",
				"supplier_id", supplier.ID,
				"username", account.Username,
			)
			return nil
		}
		return fmt.Errorf("create account: %w", err)
	}
	if err := p.suppliers.AttachAccount(ctx, supplier.ID, account.ID); err != nil && !errors.Is(err, repo.ErrConflict) {
		return fmt.Errorf("attach account: %w", err)
	}

	if p.audit != nil {
		// The audit payload never carries the secret or its digest.
		if _, err := auditlog.Insert(ctx, p.audit, auditlog.Event{
			Actor:        entry.Actor,
			Action:       "supplier_account.provisioned",
			ResourceType: "supplier_account",
			ResourceID:   account.ID,
			Payload: map[string]any{
				"supplier_id": supplier.ID,
				"username":    account.Username,
				"plan_id":     plan.ID,
			},
		}); err != nil {
			p.logger.Warn("audit account provisioning", "account_id", account.ID, "error", err)
		}
	}
	if err := p.notifier.DeliverCredentials(ctx, supplier, account.Username, secret); err != nil {
		p.logger.Warn("deliver credentials", "supplier_id", supplier.ID, "error", err)
	}
	if p.metrics != nil {
		p.metrics.AccountsProvisioned.Inc()
	}
	p.logger.Info("supplier account provisioned",
		"supplier_id", supplier.ID,
		"account_id", account.ID,
		"plan_id", plan.ID,
	)
	return nil
}

func newSecret() (string, string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(secret))
	return secret, hex.EncodeToString(sum[:]), nil
}
