package ports

import (
	"context"
	"io"
	"time"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// ObjectKey is the durable handle for Get/Delete. On localfs it is the
	// same object_key; on gdrive it is the real fileId.
	ObjectKey string
	Size      int64

	// PublicURL is the stable URL published to clients as output_url.
	PublicURL string
	// ThumbnailURL is a provider-generated preview image URL, when the
	// provider produces one. Empty otherwise.
	ThumbnailURL string
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider: implementations (localfs, gdrive, s3, etc.)
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}
