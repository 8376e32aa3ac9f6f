package rbac

import (
	"strings"

	"github.com/odyssey-erp/storefront-admin/internal/backend"
	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// Principal is the signed-in administrator with the permissions the backend
// granted at the last refresh.
type Principal struct {
	ID       string
	Name     string
	RoleName string
	Granted  []string
}

// FromAdmin converts the backend description of an admin.
func FromAdmin(a backend.Admin) Principal {
	name := a.Name
	if name == "" {
		name = a.Username
	}
	return Principal{ID: a.ID, Name: name, RoleName: a.Role, Granted: normalizePermissions(a.Permissions)}
}

// AdminID implements liststate.Permissions.
func (p Principal) AdminID() string { return p.ID }

// Role implements liststate.Permissions.
func (p Principal) Role() string { return p.RoleName }

// Has reports whether perm was granted.
func (p Principal) Has(perm liststate.Permission) bool {
	return hasAnyPermission(p.Granted, []string{strings.ToLower(string(perm))})
}

// Authenticated reports whether the principal belongs to a signed-in admin.
func (p Principal) Authenticated() bool {
	return p.ID != ""
}

var _ liststate.Permissions = Principal{}
