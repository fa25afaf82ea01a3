package s3

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// ReportStore keeps run reports in one bucket under a key prefix.
type ReportStore struct {
	client *Client
	bucket string
	prefix string
}

// NewReportStore returns a store writing to bucket under prefix.
func NewReportStore(client *Client, bucket, prefix string) *ReportStore {
	return &ReportStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key of a report.
func (s *ReportStore) Key(runID, ext string) string {
	return path.Join(s.prefix, runID+"."+strings.TrimPrefix(ext, "."))
}

// Save uploads a report, creating the bucket on first use, and returns its key.
func (s *ReportStore) Save(ctx context.Context, runID, ext, contentType string, data []byte) (string, error) {
	if err := s.client.EnsureBucket(ctx, s.bucket); err != nil {
		return "", err
	}
	key := s.Key(runID, ext)
	if err := s.client.PutObject(ctx, s.bucket, key, contentType, data); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the keys of stored reports.
func (s *ReportStore) List(ctx context.Context) ([]string, error) {
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + "/"
	}
	keys, err := s.client.ListObjects(ctx, s.bucket, prefix)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return keys, nil
}

// Load fetches a report by run ID, trying each extension in order.
func (s *ReportStore) Load(ctx context.Context, runID string, exts ...string) ([]byte, string, error) {
	var lastErr error
	for _, ext := range exts {
		key := s.Key(runID, ext)
		data, err := s.client.GetObject(ctx, s.bucket, key)
		if err == nil {
			return data, key, nil
		}
		if !IsNotFound(err) {
			return nil, "", err
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("no report for run %s in bucket %s: %w", runID, s.bucket, lastErr)
}
