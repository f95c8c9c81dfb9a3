package vcs

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	xssh "golang.org/x/crypto/ssh"
)

// DefaultSSHUser is the account name used for SSH remotes.
const DefaultSSHUser = "git"

// SSHKeyProvider implements key-based SSH authentication.
// The key is read from disk on every Resolve call and never cached, so a
// rotated key is picked up by the next attempt.
type SSHKeyProvider struct {
	// KeyPath is the private key file. The key must not be encrypted.
	KeyPath string

	// User is the SSH account name. Defaults to DefaultSSHUser.
	User string

	// KnownHosts lists known_hosts files used to verify the server key.
	// Empty means the default locations ($SSH_KNOWN_HOSTS, ~/.ssh/known_hosts).
	KnownHosts []string

	// IgnoreHostKey disables server key verification.
	IgnoreHostKey bool
}

// NewSSHKeyProvider creates a provider for the private key at keyPath.
func NewSSHKeyProvider(keyPath string) *SSHKeyProvider {
	return &SSHKeyProvider{KeyPath: keyPath, User: DefaultSSHUser}
}

// Resolve loads the key and returns a public key auth method for remoteURL.
func (p *SSHKeyProvider) Resolve(remoteURL string) (transport.AuthMethod, error) {
	if p.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	if _, err := os.Stat(p.KeyPath); err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}

	user := p.User
	if user == "" {
		user = DefaultSSHUser
	}

	auth, err := ssh.NewPublicKeysFromFile(user, p.KeyPath, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key for %s: %w", remoteURL, err)
	}

	switch {
	case p.IgnoreHostKey:
		auth.HostKeyCallback = xssh.InsecureIgnoreHostKey()
	case len(p.KnownHosts) > 0:
		cb, err := ssh.NewKnownHostsCallback(p.KnownHosts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		auth.HostKeyCallback = cb
	}

	return auth, nil
}

// NoAuth resolves to no credentials. Used for local paths and file:// remotes.
type NoAuth struct{}

// Resolve returns nil authentication.
func (NoAuth) Resolve(string) (transport.AuthMethod, error) {
	return nil, nil
}
