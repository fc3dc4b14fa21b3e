package storage

import (
	"context"
	"fmt"
	"io"
)

// Provider selects the concrete client implementation.
type Provider string

const (
	// ProviderAWS uses the native AWS SDK (source side in the typical run).
	ProviderAWS Provider = "aws"
	// ProviderS3Compat uses minio-go against any S3-compatible endpoint,
	// e.g. DigitalOcean Spaces or MinIO.
	ProviderS3Compat Provider = "s3compat"
)

// Client defines the object-store operations used by the migration engine.
// Implementations are stateless and safe for concurrent use; the same two
// client handles are shared by all workers.
type Client interface {
	// HeadBucket verifies that the bucket exists and is reachable.
	HeadBucket(ctx context.Context, bucket string) error

	// ListPage returns one bounded page of the bucket listing. Pass the
	// NextToken of the previous page (empty for the first call) until
	// Truncated is false.
	ListPage(ctx context.Context, bucket, prefix, token string, pageSize int) (Page, error)

	// GetObjectStream opens a streaming read of an object. The caller owns
	// the returned stream and must close it.
	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// PutObjectStream writes an object from a stream. size is the exact
	// object size as reported by the listing; the reader is consumed
	// without buffering the whole object. contentType may be empty when
	// the source listing did not carry one.
	PutObjectStream(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
}

// ObjectInfo contains the listing metadata the engine needs.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Page is one bounded batch returned by a paginated listing call.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
	Truncated bool
}

// Config contains client configuration for one endpoint.
type Config struct {
	Provider  Provider
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// New creates a client for the configured provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderAWS:
		return NewS3Client(ctx, cfg)
	case ProviderS3Compat, "":
		return NewMinIOClient(cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
