// Package access decides whether a session may enter a route or use a
// feature, and where to send it when it may not.
package access

// Role is a named privilege level. Roles form a total order; a role
// satisfies any requirement at or below its own level.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleEditor     Role = "editor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var roleLevels = map[Role]int{
	RoleGuest:      0,
	RoleUser:       1,
	RoleEditor:     2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperadmin: 5,
}

// Level returns the role's position in the hierarchy, or -1 for an
// unknown role, which ranks below guest.
func (r Role) Level() int {
	lvl, ok := roleLevels[r]
	if !ok {
		return -1
	}
	return lvl
}

// AtLeast reports whether r is at or above min in the hierarchy.
// An unknown min never matches, so a malformed requirement denies.
func (r Role) AtLeast(min Role) bool {
	minLvl, ok := roleLevels[min]
	if !ok {
		return false
	}
	return r.Level() >= minLvl
}

// Permission is a named capability granted to a user.
type Permission string

// PermissionSet is the set of permissions attached to a session.
type PermissionSet []Permission

// Has reports whether the set contains p.
func (s PermissionSet) Has(p Permission) bool {
	for _, have := range s {
		if have == p {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of perms.
// An empty perms list matches nothing.
func (s PermissionSet) HasAny(perms []Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every permission in perms.
func (s PermissionSet) HasAll(perms []Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Default redirect targets used when a Requirement does not supply one.
const (
	LoginRedirect        = "/login"
	UnauthorizedRedirect = "/unauthorized"
)

// Requirement describes what a route or feature demands of a session.
// Zero-value fields are not checked.
type Requirement struct {
	MinRole        Role         // minimum role in the hierarchy
	Roles          []Role       // exact allowed role set
	AnyPermission  []Permission // at least one must be held
	AllPermissions []Permission // all must be held
	Redirect       string       // overrides UnauthorizedRedirect on privilege denial
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed  bool
	Redirect string // set only when denied
}

// Evaluate applies the requirement to an authenticated-or-not subject.
// An unauthenticated subject is always sent to the login screen; an
// authenticated one failing any check is sent to the unauthorized path.
func Evaluate(authenticated bool, role Role, perms PermissionSet, req Requirement) Decision {
	if !authenticated {
		return Decision{Allowed: false, Redirect: LoginRedirect}
	}

	deny := Decision{Allowed: false, Redirect: UnauthorizedRedirect}
	if req.Redirect != "" {
		deny.Redirect = req.Redirect
	}

	if req.MinRole != "" && !role.AtLeast(req.MinRole) {
		return deny
	}
	if len(req.Roles) > 0 && !containsRole(req.Roles, role) {
		return deny
	}
	if len(req.AnyPermission) > 0 && !perms.HasAny(req.AnyPermission) {
		return deny
	}
	if len(req.AllPermissions) > 0 && !perms.HasAll(req.AllPermissions) {
		return deny
	}

	return Decision{Allowed: true}
}

func containsRole(roles []Role, r Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
