package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
	})
	return &Client{s3: client, region: "us-east-1"}
}

// xmlResponse is a helper to write S3-style XML responses.
func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func errorXML(code, message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, message)
}

// memStore is a minimal path-style object store.
type memStore struct {
	mu           sync.Mutex
	buckets      map[string]map[string][]byte
	contentTypes map[string]string
}

func newMemStore() *memStore {
	return &memStore{buckets: map[string]map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	objects, exists := m.buckets[bucket]

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodPut:
		m.buckets[bucket] = map[string][]byte{}
		w.WriteHeader(http.StatusOK)
	case key == "" && r.Method == http.MethodGet:
		if !exists {
			xmlResponse(w, http.StatusNotFound, errorXML("NoSuchBucket", "The specified bucket does not exist"))
			return
		}
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		fmt.Fprintf(&b, "<Name>%s</Name><KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", bucket, len(keys))
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		xmlResponse(w, http.StatusOK, b.String())
	case r.Method == http.MethodPut:
		if !exists {
			xmlResponse(w, http.StatusNotFound, errorXML("NoSuchBucket", "The specified bucket does not exist"))
			return
		}
		data, _ := io.ReadAll(r.Body)
		objects[key] = data
		m.contentTypes[bucket+"/"+key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := objects[key]
		if !ok {
			xmlResponse(w, http.StatusNotFound, errorXML("NoSuchKey", "The specified key does not exist."))
			return
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{name: "static credentials", opts: Options{Endpoint: "http://minio:9000", Region: "us-east-1", AccessKey: "k", SecretKey: "s", PathStyle: true}},
		{name: "default chain", opts: Options{Region: "eu-central-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewClient(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.opts.Region, client.region)
		})
	}
}

func TestEnsureBucket(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	client := testClient(t, store)
	ctx := context.Background()

	exists, err := client.BucketExists(ctx, "reports")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.EnsureBucket(ctx, "reports"))
	require.NoError(t, client.EnsureBucket(ctx, "reports"))

	exists, err = client.BucketExists(ctx, "reports")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEnsureBucket_AlreadyOwnedByYou(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		xmlResponse(w, http.StatusConflict, errorXML("BucketAlreadyOwnedByYou", "Your previous request to create the named bucket succeeded"))
	})

	require.NoError(t, testClient(t, handler).EnsureBucket(context.Background(), "reports"))
}

func TestEnsureBucket_Error(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusForbidden, errorXML("AccessDenied", "Access Denied"))
	})

	err := testClient(t, handler).EnsureBucket(context.Background(), "reports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check bucket reports")
}

func TestObjects(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	client := testClient(t, store)
	ctx := context.Background()
	require.NoError(t, client.EnsureBucket(ctx, "reports"))

	require.NoError(t, client.PutObject(ctx, "reports", "runs/b.json", "application/json", []byte(`{"id":"b"}`)))
	require.NoError(t, client.PutObject(ctx, "reports", "runs/a.json", "", []byte(`{"id":"a"}`)))
	require.NoError(t, client.PutObject(ctx, "reports", "other/c.json", "", []byte(`{}`)))
	assert.Equal(t, "application/json", store.contentTypes["reports/runs/b.json"])

	keys, err := client.ListObjects(ctx, "reports", "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/a.json", "runs/b.json"}, keys)

	data, err := client.GetObject(ctx, "reports", "runs/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(data))

	_, err = client.GetObject(ctx, "reports", "runs/missing.json")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to get object runs/missing.json from bucket reports")
}

func TestPutObject_Error(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, http.StatusInternalServerError, errorXML("InternalError", "Internal Error"))
	})

	err := testClient(t, handler).PutObject(context.Background(), "reports", "k", "", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to put object k in bucket reports")
}

func TestReportStore(t *testing.T) {
	t.Parallel()

	client := testClient(t, newMemStore())
	store := NewReportStore(client, "reports", "/bringup/")
	ctx := context.Background()

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	key, err := store.Save(ctx, "run-1", ".json", "application/json", []byte(`{"id":"run-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "bringup/run-1.json", key)

	_, err = store.Save(ctx, "run-2", "yaml", "application/yaml", []byte("id: run-2\n"))
	require.NoError(t, err)

	keys, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bringup/run-1.json", "bringup/run-2.yaml"}, keys)

	data, key, err := store.Load(ctx, "run-2", "json", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "bringup/run-2.yaml", key)
	assert.Equal(t, "id: run-2\n", string(data))

	_, _, err = store.Load(ctx, "run-3", "json", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report for run run-3")
}

func TestIsBucketAlreadyOwnedByYou(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"wrapped BucketAlreadyOwnedByYou", fmt.Errorf("outer: %w", &s3types.BucketAlreadyOwnedByYou{}), true},
		{"wrapped generic error", fmt.Errorf("outer: %w", fmt.Errorf("inner error")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isBucketAlreadyOwnedByYou(tt.err))
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"wrapped NoSuchBucket", fmt.Errorf("outer: %w", &s3types.NoSuchBucket{}), true},
		{"wrapped NoSuchKey", fmt.Errorf("outer: %w", &s3types.NoSuchKey{}), true},
		{"wrapped NotFound", fmt.Errorf("outer: %w", &s3types.NotFound{}), true},
		{"wrapped generic error", fmt.Errorf("outer: %w", fmt.Errorf("inner error")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}
