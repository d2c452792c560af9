package session

import (
	"github.com/dashkit/authcore/access"
	"github.com/dashkit/authcore/client"
)

// Status is the lifecycle state of the session.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// Session is a snapshot of the authenticated identity. It is a value: a
// subscriber or guard can hold one without seeing later mutations.
type Session struct {
	User        *client.Profile
	Role        access.Role
	Permissions access.PermissionSet
	Status      Status
}

// Authenticated reports whether the session holds a confirmed identity.
func (s Session) Authenticated() bool { return s.Status == StatusAuthenticated }

// CanAccess applies an access requirement to this session, returning the
// allow/deny decision and the redirect target on denial.
func CanAccess(s Session, req access.Requirement) access.Decision {
	return access.Evaluate(s.Authenticated(), s.Role, s.Permissions, req)
}
