package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements the Client interface using minio-go, which speaks
// the S3 protocol to any compatible endpoint (DigitalOcean Spaces, MinIO).
type MinIOClient struct {
	client *minio.Client
}

// NewMinIOClient creates a new S3-compatible client.
func NewMinIOClient(cfg Config) (*MinIOClient, error) {
	endpoint, err := cleanEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOClient{client: client}, nil
}

// cleanEndpoint removes protocol and path from endpoint URL to get host:port format
func cleanEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	// If endpoint doesn't have protocol, add http:// for parsing
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		// Check if it's already in host:port format
		if strings.Contains(endpoint, "/") {
			return "", fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, nil
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return "", fmt.Errorf("endpoint URL cannot have paths, only host:port is allowed (got path: %s)", parsedURL.Path)
	}

	return parsedURL.Host, nil
}

// HeadBucket verifies the bucket exists and the credentials can reach it.
func (c *MinIOClient) HeadBucket(ctx context.Context, bucket string) error {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q not found", bucket)
	}
	return nil
}

// ListPage fetches one page of the bucket listing via the V2 continuation
// token protocol. The high-level ListObjects channel API pages internally,
// so the core API is used to keep page boundaries explicit.
func (c *MinIOClient) ListPage(ctx context.Context, bucket, prefix, token string, pageSize int) (Page, error) {
	core := &minio.Core{Client: c.client}

	result, err := core.ListObjectsV2(bucket, prefix, "", token, "", pageSize)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Objects:   make([]ObjectInfo, 0, len(result.Contents)),
		Truncated: result.IsTruncated,
	}
	for _, obj := range result.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:         obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
		})
	}
	if page.Truncated {
		page.NextToken = result.NextContinuationToken
	}

	return page, nil
}

// GetObjectStream opens a streaming read of an object.
func (c *MinIOClient) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// PutObjectStream writes an object from a stream. With a known size,
// minio-go streams the body directly without buffering it.
func (c *MinIOClient) PutObjectStream(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	// Use original content-type if available, otherwise fallback to application/octet-stream
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
