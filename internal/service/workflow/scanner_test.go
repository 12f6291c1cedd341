package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
)

func TestScanSilenceMovesStalePlans(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()

	stale := now.AddDate(0, 0, -31)
	fresh := now.AddDate(0, 0, -10)
	store.addPlan(domain.Plan{ID: "plan-stale", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateSignedSent, LetterSentAt: &stale, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-fresh", SupplierID: "sup-2", EvaluationID: "eval-2", State: domain.StateSignedSent, LetterSentAt: &fresh, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-draft", SupplierID: "sup-3", EvaluationID: "eval-3", State: domain.StateDraft, CreatedAt: now})

	service := newTestService(store)
	scanner := NewScanner(store, service, DefaultConfig(), testLogger())

	report := scanner.ScanSilence(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Scanned != 1 || report.Transitioned != 1 {
		t.Fatalf("expected one stale plan moved, got %+v", report)
	}
	moved := store.plans["plan-stale"]
	if moved.State != domain.StateNotReceived {
		t.Fatalf("expected not_received, got %s", moved.State)
	}
	if moved.DaysWithoutResponse < 31 {
		t.Fatalf("expected silence counter >= 31, got %d", moved.DaysWithoutResponse)
	}
	if store.plans["plan-fresh"].State != domain.StateSignedSent {
		t.Fatalf("fresh plan must stay put")
	}
	entries := store.entriesFor("plan-stale")
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}
	if entries[0].ActorRole != domain.RoleSystem {
		t.Fatalf("automatic transition must carry the system role, got %s", entries[0].ActorRole)
	}
}

func TestScanSilenceIsIdempotent(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	stale := now.AddDate(0, 0, -31)
	store.addPlan(domain.Plan{ID: "plan-1", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateSignedSent, LetterSentAt: &stale, CreatedAt: now})

	service := newTestService(store)
	scanner := NewScanner(store, service, DefaultConfig(), testLogger())

	first := scanner.ScanSilence(context.Background())
	if first.Transitioned != 1 {
		t.Fatalf("expected one transition on first run, got %+v", first)
	}
	second := scanner.ScanSilence(context.Background())
	if second.Scanned != 0 || second.Transitioned != 0 {
		t.Fatalf("second run must find nothing, got %+v", second)
	}
	if entries := store.entriesFor("plan-1"); len(entries) != 1 {
		t.Fatalf("expected exactly one entry after repeat runs, got %d", len(entries))
	}
}

func TestScanSilenceDoesNotInvokeProvisioner(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	stale := now.AddDate(0, 0, -45)
	store.addPlan(domain.Plan{ID: "plan-1", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateSignedSent, LetterSentAt: &stale, CreatedAt: now})

	suppliers := newFakeSupplierRepo(domain.Supplier{ID: "sup-1", TaxID: "900123456", LegalName: "Acme SAS", Email: "legal@acme.test"})
	accounts := newFakeAccountRepo()
	provisioner := NewAutoProvisioner(accounts, suppliers, nil, nil, testLogger())

	service := newTestService(store)
	service.AddHook(provisioner)
	scanner := NewScanner(store, service, DefaultConfig(), testLogger())

	report := scanner.ScanSilence(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(accounts.accounts) != 0 {
		t.Fatalf("moving into not_received must not provision accounts")
	}
}

func TestScanDeadlinesAppendsAlertEntries(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()

	dueSoon := now.AddDate(0, 0, 3)
	dueLater := now.AddDate(0, 0, 20)
	overdue := now.AddDate(0, 0, -2)
	store.addPlan(domain.Plan{ID: "plan-soon", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateAwaitingApproval, Deadline: &dueSoon, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-later", SupplierID: "sup-2", EvaluationID: "eval-2", State: domain.StateAwaitingApproval, Deadline: &dueLater, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-overdue", SupplierID: "sup-3", EvaluationID: "eval-3", State: domain.StateInFilingQueue, Deadline: &overdue, CreatedAt: now})

	service := newTestService(store)
	scanner := NewScanner(store, service, DefaultConfig(), testLogger())

	report := scanner.ScanDeadlines(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Alerted != 1 {
		t.Fatalf("expected one alert, got %+v", report)
	}
	entries := store.entriesFor("plan-soon")
	if len(entries) != 1 {
		t.Fatalf("expected one alert entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.PreviousState != entry.NewState || entry.NewState != domain.StateAwaitingApproval {
		t.Fatalf("alert entry must keep the state, got %s -> %s", entry.PreviousState, entry.NewState)
	}
	if store.plans["plan-soon"].State != domain.StateAwaitingApproval {
		t.Fatalf("alert must not change the plan state")
	}
	if len(store.entriesFor("plan-overdue")) != 0 {
		t.Fatalf("overdue plans are outside the alert window")
	}
}

func TestScanResponseCountersUpdatesChangedOnly(t *testing.T) {
	store := newFakeStore()
	now := time.Now().UTC()
	sent := now.AddDate(0, 0, -12)
	store.addPlan(domain.Plan{ID: "plan-1", SupplierID: "sup-1", EvaluationID: "eval-1", State: domain.StateSignedSent, LetterSentAt: &sent, DaysWithoutResponse: 3, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-2", SupplierID: "sup-2", EvaluationID: "eval-2", State: domain.StateSignedSent, LetterSentAt: &sent, DaysWithoutResponse: 12, CreatedAt: now})
	store.addPlan(domain.Plan{ID: "plan-3", SupplierID: "sup-3", EvaluationID: "eval-3", State: domain.StateSignedSent, CreatedAt: now})

	service := newTestService(store)
	scanner := NewScanner(store, service, DefaultConfig(), testLogger())

	report := scanner.ScanResponseCounters(context.Background())
	if err := report.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("expected one counter update, got %+v", report)
	}
	if got := store.plans["plan-1"].DaysWithoutResponse; got != 12 {
		t.Fatalf("expected counter 12, got %d", got)
	}
}
