package domain

import (
	"errors"
	"time"
)

// Role is the closed set of actor roles known to the marketplace.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
)

var (
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAccountInactive   = errors.New("account is not active")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidOTP        = errors.New("invalid or expired verification code")
	ErrRoleLocked        = errors.New("role cannot be changed")
)

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCustomer, RoleProvider, RoleAdmin, RoleStaff:
		return r, true
	default:
		return "", false
	}
}

// IsBackOffice reports whether the role belongs to the administrative surface.
func (r Role) IsBackOffice() bool {
	switch r {
	case RoleAdmin, RoleStaff:
		return true
	case RoleCustomer, RoleProvider:
		return false
	default:
		return false
	}
}

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	CitizenID    string    `json:"cid,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanPromoteTo reports whether an admin may assign next to a user currently holding r.
// The only assignment after registration is customer -> provider.
func (r Role) CanPromoteTo(next Role) bool {
	return r == RoleCustomer && next == RoleProvider
}
