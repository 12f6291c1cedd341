package domain

type transitionKey struct {
	from PlanState
	to   PlanState
}

// transitionRoles authorizes roles per transition. A pair with no entry is
// denied for every role, including System: new edges go live only after an
// explicit grant here.
var transitionRoles = map[transitionKey][]Role{
	{StateDraft, StateSignatureProcess}:                {RoleProvider},
	{StateSignatureProcess, StateSignedSent}:           {RoleProvider},
	{StateSignatureProcess, StateEthicsViolation}:      {RoleManager},
	{StateSignedSent, StateAwaitingApproval}:           {RoleTechnician, RoleManager},
	{StateSignedSent, StateNotReceived}:                {RoleSystem},
	{StateNotReceived, StateClarification}:             {RoleTechnician, RoleManager},
	{StateClarification, StateAwaitingApproval}:        {RoleProvider},
	{StateClarification, StateEvaluationReevaluated}:   {RoleSystem},
	{StateAwaitingApproval, StateAdjustmentsRequested}: {RoleTechnician, RoleManager},
	{StateAwaitingApproval, StateInFilingQueue}:        {RoleTechnician, RoleManager},
	{StateAdjustmentsRequested, StateAwaitingApproval}: {RoleProvider},
	{StateInFilingQueue, StateFiled}:                   {RolePurchasingManager},
	{StateInFilingQueue, StateRejected}:                {RolePurchasingManager},
	{StateRejected, StateCancellationFiled}:            {RolePurchasingManager},
	{StateFiled, StatePlanReevaluated}:                 {RoleSystem},
}

// AllowedRoles returns the roles authorized for a transition, or nil when the
// pair has no grant.
func AllowedRoles(from, to PlanState) []Role {
	allowed := transitionRoles[transitionKey{from: from, to: to}]
	out := make([]Role, len(allowed))
	copy(out, allowed)
	return out
}

// RoleMayTransition checks the permission matrix. Deny by default.
func RoleMayTransition(role Role, from, to PlanState) bool {
	for _, candidate := range transitionRoles[transitionKey{from: from, to: to}] {
		if candidate == role {
			return true
		}
	}
	return false
}
