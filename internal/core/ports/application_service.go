package ports

import (
	"context"
	"io"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// DraftInput carries the editable fields of an application.
type DraftInput struct {
	Dzongkhag     string
	City          string
	Categories    []string
	CitizenID     string
	PricingType   string
	PricingAmount float64
}

// CertificateUpload is a certificate file as received from the transport layer.
type CertificateUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Decision is the outcome of an admin approve/reject call.
type Decision struct {
	Application *domain.ProviderApplication
	// Applied is false when the record had already left pending and the
	// call was a no-op.
	Applied bool
}

// ProviderListing is an approved provider as shown in the public directory.
type ProviderListing struct {
	ApplicationID string                   `json:"id"`
	UserID        string                   `json:"user_id"`
	Name          string                   `json:"name"`
	Phone         string                   `json:"phone,omitempty"`
	Location      domain.Location          `json:"location"`
	Categories    []domain.ServiceCategory `json:"categories"`
	Pricing       domain.Pricing           `json:"pricing"`
}

// ApplicationService defines the provider-application use cases.
type ApplicationService interface {
	CreateDraft(ctx context.Context, userID string, in DraftInput) (*domain.ProviderApplication, error)
	UpdateDraft(ctx context.Context, userID, id string, in DraftInput) (*domain.ProviderApplication, error)
	AttachCertificates(ctx context.Context, userID, id string, files []CertificateUpload) (*domain.ProviderApplication, error)
	Submit(ctx context.Context, userID, id string) (*domain.ProviderApplication, error)
	// Register fills the user's draft (opening one when needed), attaches the
	// files and submits it in one step.
	Register(ctx context.Context, userID string, in DraftInput, files []CertificateUpload) (*domain.ProviderApplication, error)
	Approve(ctx context.Context, adminID, id string) (*Decision, error)
	Reject(ctx context.Context, adminID, id, reason string) (*Decision, error)
	Withdraw(ctx context.Context, userID, id string) (*domain.ProviderApplication, error)
	Resubmit(ctx context.Context, userID, id string) (*domain.ProviderApplication, error)
	Current(ctx context.Context, userID string) (*domain.ProviderApplication, error)
	Get(ctx context.Context, id string) (*domain.ProviderApplication, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error)
	OpenCertificate(ctx context.Context, applicationID, documentID string) (io.ReadCloser, *domain.DocumentRef, error)
	// Directory lists approved providers, optionally only those offering category.
	Directory(ctx context.Context, category string) ([]*ProviderListing, error)
}
