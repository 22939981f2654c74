// Package access decides whether a session may enter a surface of the
// marketplace. Decisions are pure functions of the session snapshot and the
// role a route requires.
package access

import "github.com/druksewa/marketplace/internal/core/domain"

const (
	AdminLoginPath    = "/admin/login"
	UserLoginPath     = "/signin"
	AdminHomePath     = "/admin/dashboard"
	CustomerHomePath  = "/dashboard"
	ProviderHomePath  = "/provider/dashboard"
	PublicRequirement = domain.Role("")
)

// Outcome is the kind of decision taken.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

// Reason explains a redirect.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonUnauthenticated means no session was present.
	ReasonUnauthenticated
	// ReasonWrongRole means a session was present for another role.
	ReasonWrongRole
)

// Decision is the result of Authorize.
type Decision struct {
	Outcome Outcome
	Target  string
	Reason  Reason
}

// Allowed reports whether the decision lets the caller through.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Authorize evaluates a route requiring role `required` against session.
// An empty required role marks a public route.
func Authorize(required domain.Role, session *domain.Session) Decision {
	if session == nil || session.Token == "" {
		return Decision{Outcome: Redirect, Target: LoginPathFor(required), Reason: ReasonUnauthenticated}
	}
	if required == PublicRequirement || session.Role == required {
		return Decision{Outcome: Allow}
	}
	return Decision{Outcome: Redirect, Target: HomePathFor(session.Role), Reason: ReasonWrongRole}
}

// LoginPathFor returns the unauthenticated entry point for a role.
func LoginPathFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin, domain.RoleStaff:
		return AdminLoginPath
	case domain.RoleCustomer, domain.RoleProvider:
		return UserLoginPath
	default:
		return UserLoginPath
	}
}

// HomePathFor returns the landing surface for a role.
func HomePathFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin, domain.RoleStaff:
		return AdminHomePath
	case domain.RoleProvider:
		return ProviderHomePath
	case domain.RoleCustomer:
		return CustomerHomePath
	default:
		return CustomerHomePath
	}
}
