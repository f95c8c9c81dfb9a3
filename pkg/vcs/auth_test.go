package vcs

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xssh "golang.org/x/crypto/ssh"
)

// writeTestKey writes an unencrypted ed25519 private key in OpenSSH format.
func writeTestKey(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := xssh.MarshalPrivateKey(priv, "backer test key")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

// TestSSHKeyProvider_Resolve tests SSH key authentication.
func TestSSHKeyProvider_Resolve(t *testing.T) {
	validKey := writeTestKey(t)

	invalidKey := filepath.Join(t.TempDir(), "invalid_key")
	require.NoError(t, os.WriteFile(invalidKey, []byte("not a key"), 0600))

	tests := []struct {
		name    string
		keyPath string
		wantErr bool
	}{
		{name: "valid key", keyPath: validKey},
		{name: "empty path", keyPath: "", wantErr: true},
		{name: "missing file", keyPath: filepath.Join(t.TempDir(), "nope"), wantErr: true},
		{name: "invalid key content", keyPath: invalidKey, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := NewSSHKeyProvider(tt.keyPath).Resolve("git@example.com:me/notes.git")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, auth)
				return
			}
			require.NoError(t, err)

			keys, ok := auth.(*ssh.PublicKeys)
			require.True(t, ok)
			assert.Equal(t, DefaultSSHUser, keys.User)
		})
	}
}

// TestSSHKeyProvider_FreshPerCall tests that every call loads the key again.
func TestSSHKeyProvider_FreshPerCall(t *testing.T) {
	key := writeTestKey(t)
	p := &SSHKeyProvider{KeyPath: key, User: "backup", IgnoreHostKey: true}

	first, err := p.Resolve("ssh://host/repo.git")
	require.NoError(t, err)
	second, err := p.Resolve("ssh://host/repo.git")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NotNil(t, first.(*ssh.PublicKeys).HostKeyCallback)
	assert.Equal(t, "backup", first.(*ssh.PublicKeys).User)

	// A deleted key fails the next attempt instead of reusing a cached one.
	require.NoError(t, os.Remove(key))
	_, err = p.Resolve("ssh://host/repo.git")
	assert.Error(t, err)
}

// TestNoAuth_Resolve tests that NoAuth yields no credentials.
func TestNoAuth_Resolve(t *testing.T) {
	auth, err := NoAuth{}.Resolve("/srv/backup.git")
	assert.NoError(t, err)
	assert.Nil(t, auth)
}
