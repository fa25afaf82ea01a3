package report

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ObjectStore is the subset of an S3-compatible client the Store needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Store keeps run reports in a bucket as <prefix>/<cluster>/<run-id>.<ext>.
type Store struct {
	objects ObjectStore
	bucket  string
	prefix  string
}

// NewStore returns a store writing to bucket under prefix.
func NewStore(objects ObjectStore, bucket, prefix string) (*Store, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{objects: objects, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Key returns the object key of doc in format.
func (s *Store) Key(doc *Document, format Format) string {
	return path.Join(s.prefix, doc.Cluster, doc.RunID+"."+format.Extension())
}

// Upload encodes doc and stores it, creating the bucket if needed. It
// returns the object key.
func (s *Store) Upload(ctx context.Context, doc *Document, format Format) (string, error) {
	data, err := Encode(doc, format)
	if err != nil {
		return "", err
	}
	if err := s.objects.EnsureBucket(ctx, s.bucket); err != nil {
		return "", fmt.Errorf("failed to prepare report bucket: %w", err)
	}
	key := s.Key(doc, format)
	if err := s.objects.PutObject(ctx, s.bucket, key, format.ContentType(), data); err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	return key, nil
}

// List returns the keys of the stored reports of cluster, or of every
// cluster when cluster is empty.
func (s *Store) List(ctx context.Context, cluster string) ([]string, error) {
	prefix := s.prefix
	if cluster != "" {
		prefix = path.Join(prefix, cluster)
	}
	if prefix != "" {
		prefix += "/"
	}
	keys, err := s.objects.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return keys, nil
}

// Fetch downloads and decodes the report stored at key. Text reports
// cannot be decoded.
func (s *Store) Fetch(ctx context.Context, key string) (*Document, error) {
	data, err := s.objects.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	doc, err := Decode(data, FormatFor(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return doc, nil
}
