package ports

import (
	"context"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	VerifyOTP(ctx context.Context, email, code string) (*domain.User, error)
	// ResendOTP issues a new code for an account that is not yet active.
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	AdminLogin(ctx context.Context, email, password string) (string, *domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*domain.User, error)
	// ListUsers returns accounts holding role, or every account when role is empty.
	ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error)
}
