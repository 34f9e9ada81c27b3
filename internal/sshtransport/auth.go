package sshtransport

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"

	"github.com/wharfterm/wharf/internal/logutil"
)

// AuthError wraps an authentication failure. Err preserves whatever
// remaining-methods detail the server/library surfaced (x/crypto/ssh
// embeds the attempted-methods list in its handshake error text). Connect
// also returns an AuthError when dialing fails, since ssh.Dial reports
// transport and authentication failures through the same error.
type AuthError struct {
	Method AuthMethod
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ssh: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// defaultKeyNames is the canonical auto-discovery order.
var defaultKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa", "id_dsa"}

// buildAuthMethods resolves cfg.Auth into the []ssh.AuthMethod list passed
// to ssh.ClientConfig. For AuthAuto it loads every default key file that
// exists, in canonical order; x/crypto/ssh's ssh.PublicKeys tries each
// signer against the server in the order given within a single connection,
// which reproduces "succeed on first acceptance, else fail" without a
// separate connection per candidate.
func buildAuthMethods(cfg AuthConfig) ([]ssh.AuthMethod, error) {
	switch cfg.Method {
	case AuthPassword:
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil

	case AuthPrivateKey:
		signer, err := loadSigner(cfg.KeyPath, cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("load private key %s: %w", logutil.SanitizeForLog(cfg.KeyPath), err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil

	case AuthAuto:
		signers, err := loadDefaultSigners()
		if err != nil {
			return nil, err
		}
		if len(signers) == 0 {
			return nil, fmt.Errorf("auto authentication failed: no default key files could authenticate")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil

	default:
		return nil, fmt.Errorf("unknown auth method %d", cfg.Method)
	}
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(data, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("parse key with passphrase: %w", err)
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	return signer, nil
}

// loadDefaultSigners loads every key in defaultKeyNames that exists under
// the user's ~/.ssh directory, skipping missing files and logging a
// warning (not an error) for files that exist but fail to parse.
func loadDefaultSigners() ([]ssh.Signer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	var signers []ssh.Signer
	for _, name := range defaultKeyNames {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		signer, err := loadSigner(path, "")
		if err != nil {
			log.Printf("[ssh] skipping %s: %v", logutil.SanitizeForLog(path), err)
			continue
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// resolveUsername applies the SSH username precedence: explicit config >
// $USER > $USERNAME > "root".
func resolveUsername(configured string) string {
	if configured != "" {
		return configured
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "root"
}
