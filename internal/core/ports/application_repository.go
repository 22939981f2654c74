package ports

import (
	"context"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// ApplicationRepository persists provider applications.
type ApplicationRepository interface {
	// Create inserts a new application. It returns domain.ErrActiveApplication
	// when the user already holds a draft or pending application.
	Create(ctx context.Context, app *domain.ProviderApplication) error
	FindByID(ctx context.Context, id string) (*domain.ProviderApplication, error)
	// FindLatestByUser returns the user's most recently created application.
	FindLatestByUser(ctx context.Context, userID string) (*domain.ProviderApplication, error)
	// ListByStatus returns applications in status, oldest first.
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error)
	// ListByStatusInCategory is ListByStatus restricted to applications
	// offering category.
	ListByStatusInCategory(ctx context.Context, status domain.ApplicationStatus, category domain.ServiceCategory) ([]*domain.ProviderApplication, error)
	// UpdateDraft replaces the editable fields of app while it is still a
	// draft. A record in any other status yields *domain.ConflictError.
	UpdateDraft(ctx context.Context, app *domain.ProviderApplication) (*domain.ProviderApplication, error)
	// CompareAndSwapStatus moves the record from change.Expected to
	// change.Next. It returns the authoritative record after the call and
	// whether this call performed the swap.
	CompareAndSwapStatus(ctx context.Context, change domain.StatusChange) (*domain.ProviderApplication, bool, error)
}
