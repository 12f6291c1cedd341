package auth

import (
	"net/http"
	"strings"
)

// Role strings carried by authenticated identities. RoleSystem is reserved for
// the in-process scanner and is never accepted from a caller-supplied identity.
const (
	RoleProvider          = "provider"
	RoleTechnician        = "technician"
	RoleManager           = "manager"
	RolePurchasingManager = "purchasing_manager"
	RoleAdmin             = "admin"
	RoleSystem            = "system"
)

var knownRoles = map[string]bool{
	RoleProvider:          true,
	RoleTechnician:        true,
	RoleManager:           true,
	RolePurchasingManager: true,
	RoleAdmin:             true,
}

func HasRole(roles []string, required string) bool {
	required = strings.ToLower(strings.TrimSpace(required))
	for _, role := range roles {
		if strings.ToLower(strings.TrimSpace(role)) == required {
			return true
		}
	}
	return false
}

func HasAnyKnownRole(roles []string) bool {
	for _, role := range roles {
		if knownRoles[strings.ToLower(strings.TrimSpace(role))] {
			return true
		}
	}
	return false
}

// CarriesSystemRole reports whether an externally supplied identity claims the
// reserved system role. Such identities are always rejected.
func CarriesSystemRole(roles []string) bool {
	return HasRole(roles, RoleSystem)
}

// RequireRoles builds an authorizer that rejects identities claiming the
// system role and then requires, per matched path prefix, one of the listed
// roles. Paths with no prefix entry fall back to requiring any known role.
func RequireRoles(prefixRoles map[string][]string) AuthorizeFunc {
	return func(r *http.Request, identity Identity) error {
		if CarriesSystemRole(identity.Roles) {
			return ErrForbidden
		}
		for prefix, required := range prefixRoles {
			if !strings.HasPrefix(r.URL.Path, prefix) {
				continue
			}
			for _, role := range required {
				if HasRole(identity.Roles, role) {
					return nil
				}
			}
			return ErrForbidden
		}
		if HasAnyKnownRole(identity.Roles) {
			return nil
		}
		return ErrForbidden
	}
}
