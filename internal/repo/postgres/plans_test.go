package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/mejora-labs/mejora-go/internal/domain"
	"github.com/mejora-labs/mejora-go/internal/repo"
)

func TestBuildPlanListQueryNoFilter(t *testing.T) {
	query, args := buildPlanListQuery(repo.PlanFilter{})
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
	if strings.Contains(query, "WHERE") {
		t.Fatalf("expected no predicates, got %s", query)
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Fatalf("expected newest-first ordering, got %s", query)
	}
}

func TestBuildPlanListQuerySupplierAndState(t *testing.T) {
	query, args := buildPlanListQuery(repo.PlanFilter{
		SupplierID: "sup-1",
		State:      domain.StateSignedSent,
		Limit:      25,
	})
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if args[0] != "sup-1" || args[1] != string(domain.StateSignedSent) {
		t.Fatalf("unexpected args %v", args)
	}
	if !strings.Contains(query, "supplier_id = $1") || !strings.Contains(query, "state = $2") {
		t.Fatalf("expected supplier and state predicates, got %s", query)
	}
	if !strings.Contains(query, "LIMIT $3") {
		t.Fatalf("expected limit in query, got %s", query)
	}
}

func TestBuildPlanListQuerySilenceScan(t *testing.T) {
	cutoff := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	query, args := buildPlanListQuery(repo.PlanFilter{
		State:            domain.StateSignedSent,
		LetterSentBefore: &cutoff,
	})
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %v", args)
	}
	if !strings.Contains(query, "letter_sent_at IS NOT NULL AND letter_sent_at < $2") {
		t.Fatalf("expected letter cutoff predicate, got %s", query)
	}
}

func TestBuildPlanListQueryActiveOnly(t *testing.T) {
	query, args := buildPlanListQuery(repo.PlanFilter{ActiveOnly: true})
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %v", args)
	}
	states, ok := args[0].([]string)
	if !ok || len(states) == 0 {
		t.Fatalf("expected active state list, got %v", args[0])
	}
	for _, raw := range states {
		if !domain.PlanState(raw).Active() {
			t.Fatalf("state %s is not active", raw)
		}
	}
	if !strings.Contains(query, "state = ANY($1)") {
		t.Fatalf("expected ANY predicate, got %s", query)
	}
}

func TestNullIfEmptyTrims(t *testing.T) {
	if got := nullIfEmpty("  "); got.Valid {
		t.Fatalf("blank input must map to NULL")
	}
	got := nullIfEmpty(" radicado-42 ")
	if !got.Valid || got.String != "radicado-42" {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestTimePtrRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	ptr := timePtr(nullTimePtr(&at))
	if ptr == nil || !ptr.Equal(at) {
		t.Fatalf("round trip lost the timestamp: %v", ptr)
	}
	if timePtr(nullTimePtr(nil)) != nil {
		t.Fatalf("nil must stay nil")
	}
}
