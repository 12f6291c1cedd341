package domain

import "testing"

func TestPermissionMatrixDeniesUnlistedPairs(t *testing.T) {
	roles := []Role{RoleProvider, RoleTechnician, RoleManager, RolePurchasingManager, RoleSystem}

	// The draft -> submitted edge exists in the transition table but carries
	// no grant, so even System must be denied.
	for _, role := range roles {
		if RoleMayTransition(role, StateDraft, StateSubmitted) {
			t.Fatalf("ungoverned pair draft -> submitted must deny %s", role)
		}
	}
	if got := AllowedRoles(StateDraft, StateSubmitted); len(got) != 0 {
		t.Fatalf("expected no allowed roles, got %v", got)
	}
}

func TestPermissionMatrixGrants(t *testing.T) {
	cases := []struct {
		role     Role
		from, to PlanState
		allowed  bool
	}{
		{RoleProvider, StateDraft, StateSignatureProcess, true},
		{RoleTechnician, StateDraft, StateSignatureProcess, false},
		{RoleManager, StateSignatureProcess, StateEthicsViolation, true},
		{RoleTechnician, StateSignatureProcess, StateEthicsViolation, false},
		{RoleSystem, StateSignedSent, StateNotReceived, true},
		{RoleManager, StateSignedSent, StateNotReceived, false},
		{RoleTechnician, StateSignedSent, StateAwaitingApproval, true},
		{RoleManager, StateSignedSent, StateAwaitingApproval, true},
		{RoleProvider, StateSignedSent, StateAwaitingApproval, false},
		{RolePurchasingManager, StateInFilingQueue, StateFiled, true},
		{RoleManager, StateInFilingQueue, StateFiled, false},
		{RolePurchasingManager, StateRejected, StateCancellationFiled, true},
		{RoleSystem, StateFiled, StatePlanReevaluated, true},
		{RoleProvider, StateFiled, StatePlanReevaluated, false},
		{RoleSystem, StateClarification, StateEvaluationReevaluated, true},
		{RoleProvider, StateAdjustmentsRequested, StateAwaitingApproval, true},
	}
	for _, tc := range cases {
		if got := RoleMayTransition(tc.role, tc.from, tc.to); got != tc.allowed {
			t.Fatalf("RoleMayTransition(%s, %s, %s) = %v, want %v", tc.role, tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestEveryGrantCoversAnExistingEdge(t *testing.T) {
	for key := range transitionRoles {
		if !CanTransition(key.from, key.to) {
			t.Fatalf("grant %s -> %s has no backing transition", key.from, key.to)
		}
	}
}

func TestAllowedRolesReturnsCopy(t *testing.T) {
	first := AllowedRoles(StateSignedSent, StateAwaitingApproval)
	if len(first) != 2 {
		t.Fatalf("unexpected roles %v", first)
	}
	first[0] = RoleSystem
	second := AllowedRoles(StateSignedSent, StateAwaitingApproval)
	if second[0] == RoleSystem {
		t.Fatalf("AllowedRoles must not expose the internal table")
	}
}

func TestParseHumanRole(t *testing.T) {
	if got, err := ParseHumanRole("purchasing_manager"); err != nil || got != RolePurchasingManager {
		t.Fatalf("ParseHumanRole(purchasing_manager) = %v, %v", got, err)
	}
	if _, err := ParseHumanRole("system"); err == nil {
		t.Fatalf("system must never parse as a human role")
	}
	if _, err := ParseHumanRole("auditor"); err == nil {
		t.Fatalf("unknown role must be rejected")
	}
}
