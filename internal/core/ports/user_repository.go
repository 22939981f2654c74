package ports

import (
	"context"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// ProfileUpdate carries the user-editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name  *string
	Phone *string
}

// UserRepository defines persistence for marketplace accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Activate(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*domain.User, error)
	// List returns accounts oldest first, restricted to role unless it is empty.
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)
	RoleAssigner
}

// ApplicantAccounts is the slice of the user store the application workflow needs.
type ApplicantAccounts interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	RoleAssigner
}

// RoleAssigner performs the admin-driven role change. It only succeeds when
// the stored role still equals from.
type RoleAssigner interface {
	AssignRole(ctx context.Context, id string, from, to domain.Role) error
}

// VerificationCodes issues and consumes one-time email confirmation codes.
type VerificationCodes interface {
	Issue(ctx context.Context, email string) (string, error)
	// Consume reports whether code matched; a matched code cannot be reused.
	Consume(ctx context.Context, email, code string) (bool, error)
}
