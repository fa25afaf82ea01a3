package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/bringup/internal/config"
	"github.com/imamik/bringup/internal/orchestration"
	"github.com/imamik/bringup/internal/platform/cm"
	"github.com/imamik/bringup/internal/platform/node"
	"github.com/imamik/bringup/internal/report"
	testutil "github.com/imamik/bringup/internal/testing"
)

// saveAndRestoreFactories saves all factory functions and restores them after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfigFile := loadConfigFile
	origLoadTimeouts := loadTimeouts
	origGetenv := getenv
	origReadFile := readFile
	origNewManagementClient := newManagementClient
	origNewNodeTransport := newNodeTransport
	origNewObjectStore := newObjectStore
	origNewReconciler := newReconciler
	origStdout := stdout
	origStderr := stderr
	origColorOutput := colorOutput

	t.Cleanup(func() {
		loadConfigFile = origLoadConfigFile
		loadTimeouts = origLoadTimeouts
		getenv = origGetenv
		readFile = origReadFile
		newManagementClient = origNewManagementClient
		newNodeTransport = origNewNodeTransport
		newObjectStore = origNewObjectStore
		newReconciler = origNewReconciler
		stdout = origStdout
		stderr = origStderr
		colorOutput = origColorOutput
	})
}

// captureOutput redirects stdout to a buffer and discards logs.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	stdout = &buf
	stderr = io.Discard
	colorOutput = func() bool { return false }
	return &buf
}

// useFixture wires the factories to a fake cluster.
func useFixture(t *testing.T, f *testutil.ClusterFixture) {
	t.Helper()
	loadConfigFile = func(string) (*config.Config, error) { return f.Config, nil }
	loadTimeouts = testutil.FastTimeouts
	newManagementClient = func(_ *config.Config, _ logr.Logger, metrics *cm.Metrics) (orchestration.Management, error) {
		return f.Client(t, cm.WithMetrics(metrics)), nil
	}
	newNodeTransport = func(*config.Config, *config.Timeouts, logr.Logger) (node.Transport, orchestration.HealthChecker, error) {
		return f.Nodes, nil, nil
	}
}

// memObjects is an in-memory report.ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) EnsureBucket(context.Context, string) error { return nil }

func (m *memObjects) PutObject(_ context.Context, bucket, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	m.types[bucket+"/"+key] = contentType
	return nil
}

func (m *memObjects) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if key, ok := strings.CutPrefix(k, bucket+"/"); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey: the specified key does not exist")
	}
	return data, nil
}

func useObjects(m *memObjects) {
	newObjectStore = func(context.Context) (report.ObjectStore, error) { return m, nil }
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	saveAndRestoreFactories(t)

	_, err := loadConfig("")
	assert.ErrorContains(t, err, "config file is required (use --config)")
}

func TestLoadConfig_WrapsLoadError(t *testing.T) {
	saveAndRestoreFactories(t)

	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("cluster.nodes: at least one node is required")
	}

	_, err := loadConfig("cluster.yaml")
	assert.ErrorContains(t, err, "failed to load config cluster.yaml")
	assert.ErrorContains(t, err, "at least one node is required")
}

func TestDefaultNodeTransport_None(t *testing.T) {
	saveAndRestoreFactories(t)

	cfg := testutil.MinimalConfig()
	cfg.Transport.Type = config.TransportNone

	nodes, health, err := defaultNodeTransport(cfg, testutil.FastTimeouts(), logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, node.None{}, nodes)
	assert.Nil(t, health)
}

func TestDefaultNodeTransport_SSHMissingKey(t *testing.T) {
	saveAndRestoreFactories(t)

	readFile = func(string) ([]byte, error) {
		return nil, errors.New("open /root/.ssh/id_ed25519: no such file or directory")
	}
	cfg := testutil.MinimalConfig()
	cfg.Transport.Type = config.TransportSSH
	cfg.Transport.SSH.PrivateKeyPath = "/root/.ssh/id_ed25519"

	_, _, err := defaultNodeTransport(cfg, testutil.FastTimeouts(), logr.Discard())
	assert.ErrorContains(t, err, "failed to read ssh private key")
}

func TestNewObjectStore_DefaultsRegion(t *testing.T) {
	saveAndRestoreFactories(t)

	getenv = func(key string) string {
		switch key {
		case config.EnvS3Endpoint:
			return "http://127.0.0.1:9000"
		case config.EnvS3AccessKey:
			return "minio"
		case config.EnvS3SecretKey:
			return "minio123"
		}
		return ""
	}

	store, err := newObjectStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
}
