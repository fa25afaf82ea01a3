package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// testKeyPair holds a PEM-encoded private key and its authorized_keys line.
type testKeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// generateTestKey generates an Ed25519 key pair for use in tests.
func generateTestKey(t *testing.T) *testKeyPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "test")
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return &testKeyPair{
		PrivateKey: pem.EncodeToMemory(block),
		PublicKey:  ssh.MarshalAuthorizedKey(signer.PublicKey()),
	}
}
