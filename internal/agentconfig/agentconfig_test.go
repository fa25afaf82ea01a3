package agentconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[General]
# Hostname of the CM server.
server_host=localhost

# Port that the CM server is listening on.
server_port=7182

# List of filesystems the agent monitors.
local_filesystem_whitelist=ext2,ext3,ext4,xfs

[Security]
use_tls=0
`

var settings = Settings{
	ServerHost:          "node-1.cluster",
	ListeningIP:         "192.168.124.2",
	ListeningHostname:   "node-2.cluster",
	ReportedHostname:    "node-2.cluster",
	FilesystemWhitelist: []string{"aufs", "overlay"},
}

func get(t *testing.T, data []byte, key string) string {
	t.Helper()
	v, err := Get(data, key)
	require.NoError(t, err)
	return v
}

func TestApply(t *testing.T) {
	t.Parallel()

	out, err := Apply([]byte(sample), settings)
	require.NoError(t, err)

	assert.Equal(t, "node-1.cluster", get(t, out, KeyServerHost))
	assert.Equal(t, "192.168.124.2", get(t, out, KeyListeningIP))
	assert.Equal(t, "node-2.cluster", get(t, out, KeyListeningHostname))
	assert.Equal(t, "node-2.cluster", get(t, out, KeyReportedHostname))
	assert.Equal(t, "ext2,ext3,ext4,xfs,aufs,overlay", get(t, out, KeyFilesystemWhitelist))
	assert.Equal(t, "7182", get(t, out, "server_port"))

	assert.Contains(t, string(out), "[Security]")
	assert.Contains(t, string(out), "Hostname of the CM server.")
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	once, err := Apply([]byte(sample), settings)
	require.NoError(t, err)
	twice, err := Apply(once, settings)
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
	assert.Equal(t, "ext2,ext3,ext4,xfs,aufs,overlay", get(t, twice, KeyFilesystemWhitelist))
}

func TestApply_KeepsUnsetScalars(t *testing.T) {
	t.Parallel()

	out, err := Apply([]byte(sample), Settings{ListeningIP: "10.0.0.5"})
	require.NoError(t, err)

	assert.Equal(t, "localhost", get(t, out, KeyServerHost))
	assert.Equal(t, "10.0.0.5", get(t, out, KeyListeningIP))
	assert.Equal(t, "ext2,ext3,ext4,xfs", get(t, out, KeyFilesystemWhitelist))
}

func TestApply_CreatesMissingKeys(t *testing.T) {
	t.Parallel()

	out, err := Apply([]byte(""), settings)
	require.NoError(t, err)

	assert.Equal(t, "node-1.cluster", get(t, out, KeyServerHost))
	assert.Equal(t, "aufs,overlay", get(t, out, KeyFilesystemWhitelist))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := []byte(sample)
	_, err := Apply(in, settings)
	require.NoError(t, err)
	assert.Equal(t, sample, string(in))
}

func TestApply_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Apply([]byte("[General\nserver_host=x\n"), settings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse agent config")
}

func TestGet_MissingSection(t *testing.T) {
	t.Parallel()

	assert.Empty(t, get(t, []byte("[Security]\nuse_tls=0\n"), KeyServerHost))
}
