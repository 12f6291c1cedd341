package domain

import (
	"fmt"
	"strings"
)

// Role identifies the actor performing a transition. RoleSystem is reserved
// for time-driven automation and is never assigned to a human identity.
type Role string

const (
	RoleProvider          Role = "provider"
	RoleTechnician        Role = "technician"
	RoleManager           Role = "manager"
	RolePurchasingManager Role = "purchasing_manager"
	RoleSystem            Role = "system"
)

var roleNames = map[Role]bool{
	RoleProvider:          true,
	RoleTechnician:        true,
	RoleManager:           true,
	RolePurchasingManager: true,
	RoleSystem:            true,
}

func (r Role) Valid() bool {
	return roleNames[r]
}

// Human reports whether the role may be carried by a person.
func (r Role) Human() bool {
	return r.Valid() && r != RoleSystem
}

// ParseHumanRole parses the role of an interactive caller. The system role is
// rejected here so that automation can never be impersonated over the API.
func ParseHumanRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	if !role.Human() {
		return "", fmt.Errorf("role %q is reserved for automation", raw)
	}
	return role, nil
}
