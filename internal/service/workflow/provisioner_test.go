package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

func TestProvisionerCreatesAccountOnSignedSent(t *testing.T) {
	store := newFakeStore()
	store.addPlan(domain.Plan{ID: "plan-1", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateSignatureProcess, CreatedAt: time.Now()})

	suppliers := newFakeSupplierRepo(domain.Supplier{ID: "sup-1", TaxID: "900123456", LegalName: "Acme SAS", Email: "legal@acme.test"})
	accounts := newFakeAccountRepo()
	notifier := &captureNotifier{}
	provisioner := NewAutoProvisioner(accounts, suppliers, nil, notifier, testLogger())

	service := newTestService(store)
	service.AddHook(provisioner)

	if _, err := service.Transition(context.Background(), "plan-1", domain.StateSignedSent, Actor{ID: "vendor@acme.test", Role: domain.RoleProvider}, "", Fields{}); err != nil {
		t.Fatalf("transition: %v", err)
	}

	account, ok := accounts.byUsername("900123456")
	if !ok {
		t.Fatalf("expected account keyed by tax id")
	}
	if !account.MustChangeSecret {
		t.Fatalf("provisioned account must require a secret change")
	}
	if account.SecretSHA256 == "" || account.SecretSHA256 == notifier.secret {
		t.Fatalf("store must hold a digest, never the plaintext")
	}
	sum := sha256.Sum256([]byte(notifier.secret))
	if hex.EncodeToString(sum[:]) != account.SecretSHA256 {
		t.Fatalf("stored digest must match the delivered secret")
	}
	if suppliers.suppliers["sup-1"].AccountID != account.ID {
		t.Fatalf("account must be attached to the supplier")
	}
}

func TestProvisionerSkipsAlreadyProvisionedSupplier(t *testing.T) {
	suppliers := newFakeSupplierRepo(domain.Supplier{ID: "sup-1", TaxID: "900123456", LegalName: "Acme SAS", Email: "legal@acme.test", AccountID: "acct-1"})
	accounts := newFakeAccountRepo()
	provisioner := NewAutoProvisioner(accounts, suppliers, nil, nil, testLogger())

	plan := domain.Plan{ID: "plan-1", SupplierID: "sup-1", State: domain.StateSignedSent}
	if err := provisioner.AfterTransition(context.Background(), plan, domain.AuditEntry{Actor: "vendor@acme.test"}); err != nil {
		t.Fatalf("hook: %v", err)
	}
	if len(accounts.accounts) != 0 {
		t.Fatalf("supplier with an account must not be provisioned again")
	}
}

func TestProvisionerCollisionIsNonFatal(t *testing.T) {
	suppliers := newFakeSupplierRepo(domain.Supplier{ID: "sup-1", TaxID: "900123456", LegalName: "Acme SAS", Email: "legal@acme.test"})
	accounts := newFakeAccountRepo()
	accounts.createErr = repo.ErrConflict
	provisioner := NewAutoProvisioner(accounts, suppliers, nil, nil, testLogger())

	plan := domain.Plan{ID: "plan-1", SupplierID: "sup-1", State: domain.StateSignedSent}
	if err := provisioner.AfterTransition(context.Background(), plan, domain.AuditEntry{Actor: "vendor@acme.test"}); err != nil {
		t.Fatalf("collision must be swallowed as a warning, got %v", err)
	}
}

func TestProvisionerIgnoresOtherStates(t *testing.T) {
	suppliers := newFakeSupplierRepo(domain.Supplier{ID: "sup-1", TaxID: "900123456", LegalName: "Acme SAS", Email: "legal@acme.test"})
	accounts := newFakeAccountRepo()
	provisioner := NewAutoProvisioner(accounts, suppliers, nil, nil, testLogger())

	for _, state := range []domain.PlanState{domain.StateDraft, domain.StateNotReceived, domain.StateFiled, domain.StateClosed} {
		plan := domain.Plan{ID: "plan-1", SupplierID: "sup-1", State: state}
		if err := provisioner.AfterTransition(context.Background(), plan, domain.AuditEntry{Actor: "x"}); err != nil {
			t.Fatalf("hook on %s: %v", state, err)
		}
	}
	if len(accounts.accounts) != 0 {
		t.Fatalf("only signed_and_sent provisions accounts")
	}
}

type captureNotifier struct {
	username string
	secret   string
}

func (c *captureNotifier) DeliverCredentials(ctx context.Context, supplier domain.Supplier, username, secret string) error {
	c.username = username
	c.secret = secret
	return nil
}

type fakeSupplierRepo struct {
	suppliers map[string]domain.Supplier
}

func newFakeSupplierRepo(suppliers ...domain.Supplier) *fakeSupplierRepo {
	out := &fakeSupplierRepo{suppliers: map[string]domain.Supplier{}}
	for _, s := range suppliers {
		out.suppliers[s.ID] = s
	}
	return out
}

func (f *fakeSupplierRepo) Create(ctx context.Context, supplier domain.Supplier) error {
	if _, ok := f.suppliers[supplier.ID]; ok {
		return repo.ErrConflict
	}
	f.suppliers[supplier.ID] = supplier
	return nil
}

func (f *fakeSupplierRepo) Get(ctx context.Context, id string) (domain.Supplier, error) {
	supplier, ok := f.suppliers[id]
	if !ok {
		return domain.Supplier{}, repo.ErrNotFound
	}
	return supplier, nil
}

func (f *fakeSupplierRepo) GetByTaxID(ctx context.Context, taxID string) (domain.Supplier, error) {
	for _, supplier := range f.suppliers {
		if supplier.TaxID == taxID {
			return supplier, nil
		}
	}
	return domain.Supplier{}, repo.ErrNotFound
}

func (f *fakeSupplierRepo) List(ctx context.Context, filter repo.SupplierFilter) ([]domain.Supplier, error) {
	out := make([]domain.Supplier, 0, len(f.suppliers))
	for _, supplier := range f.suppliers {
		out = append(out, supplier)
	}
	return out, nil
}

func (f *fakeSupplierRepo) AttachAccount(ctx context.Context, supplierID, accountID string) error {
	supplier, ok := f.suppliers[supplierID]
	if !ok {
		return repo.ErrNotFound
	}
	if supplier.AccountID != "" {
		return repo.ErrConflict
	}
	supplier.AccountID = accountID
	f.suppliers[supplierID] = supplier
	return nil
}

type fakeAccountRepo struct {
	accounts  map[string]domain.SupplierAccount
	createErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]domain.SupplierAccount{}}
}

func (f *fakeAccountRepo) byUsername(username string) (domain.SupplierAccount, bool) {
	for _, account := range f.accounts {
		if account.Username == username {
			return account, true
		}
	}
	return domain.SupplierAccount{}, false
}

func (f *fakeAccountRepo) Create(ctx context.Context, account domain.SupplierAccount) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byUsername(account.Username); ok {
		return repo.ErrConflict
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (domain.SupplierAccount, error) {
	account, ok := f.byUsername(username)
	if !ok {
		return domain.SupplierAccount{}, repo.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) GetBySupplier(ctx context.Context, supplierID string) (domain.SupplierAccount, error) {
	for _, account := range f.accounts {
		if account.SupplierID == supplierID {
			return account, nil
		}
	}
	return domain.SupplierAccount{}, repo.ErrNotFound
}
