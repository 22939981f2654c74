package ports

import (
	"context"
	"io"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// DocumentUpload is a certificate that already passed the document policy.
type DocumentUpload struct {
	OwnerID     string
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentStore receives uploaded certificate files.
type DocumentStore interface {
	Put(ctx context.Context, doc DocumentUpload) (domain.DocumentRef, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}
