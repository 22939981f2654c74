package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

const certificateBucket = "certificates"

// CertificateStore keeps certificate files in a GridFS bucket.
type CertificateStore struct {
	bucket *gridfs.Bucket
}

func NewCertificateStore(db *mongo.Database) (*CertificateStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(certificateBucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &CertificateStore{bucket: bucket}, nil
}

func (s *CertificateStore) Put(ctx context.Context, doc ports.DocumentUpload) (domain.DocumentRef, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.bucket.SetWriteDeadline(deadline); err != nil {
			return domain.DocumentRef{}, err
		}
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "owner_id", Value: doc.OwnerID},
		{Key: "content_type", Value: doc.ContentType},
	})
	id, err := s.bucket.UploadFromStream(doc.Filename, bytes.NewReader(doc.Data), opts)
	if err != nil {
		return domain.DocumentRef{}, fmt.Errorf("upload certificate: %w", err)
	}

	return domain.DocumentRef{
		ID:          id.Hex(),
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Size:        int64(len(doc.Data)),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Open returns a stream over the stored file. The caller closes it.
func (s *CertificateStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrDocumentNotFound
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.bucket.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}

	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("open certificate: %w", err)
	}
	return stream, nil
}
