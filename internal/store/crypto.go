package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fernet/fernet-go"
)

// keyFileName is the name of the Fernet key file kept alongside the store's
// persisted JSON document.
const keyFileName = "credential.key"

// loadOrCreateKey reads dataDir/credential.key, generating and writing a
// fresh key on first use. The key file is created with 0600 permissions
// since it protects every password at rest in the store.
func loadOrCreateKey(dataDir string) (*fernet.Key, error) {
	path := filepath.Join(dataDir, keyFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		key, err := fernet.DecodeKey(string(data))
		if err != nil {
			return nil, fmt.Errorf("store: decode credential key: %w", err)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("store: read credential key: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}

	var k fernet.Key
	if err := k.Generate(); err != nil {
		return nil, fmt.Errorf("store: generate credential key: %w", err)
	}
	if err := os.WriteFile(path, []byte(k.Encode()), 0o600); err != nil {
		return nil, fmt.Errorf("store: write credential key: %w", err)
	}
	return &k, nil
}

func encryptField(key *fernet.Key, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	tok, err := fernet.EncryptAndSign([]byte(plaintext), key)
	if err != nil {
		return "", fmt.Errorf("store: encrypt: %w", err)
	}
	return string(tok), nil
}

func decryptField(key *fernet.Key, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), 0*time.Second, []*fernet.Key{key})
	if msg == nil {
		return "", fmt.Errorf("store: decrypt: invalid token")
	}
	return string(msg), nil
}

// encryptSecrets walks nodes and credential presets, replacing every
// plaintext password with a Fernet token. Called just before serialization.
func encryptSecrets(key *fernet.Key, nodes []SessionNode, presets []CredentialPreset) error {
	if err := walkPasswords(nodes, func(pw *string) error {
		tok, err := encryptField(key, *pw)
		if err != nil {
			return err
		}
		*pw = tok
		return nil
	}); err != nil {
		return err
	}
	for i := range presets {
		tok, err := encryptField(key, presets[i].Password)
		if err != nil {
			return err
		}
		presets[i].Password = tok
	}
	return nil
}

// decryptSecrets is encryptSecrets' inverse, applied just after
// deserialization.
func decryptSecrets(key *fernet.Key, nodes []SessionNode, presets []CredentialPreset) error {
	if err := walkPasswords(nodes, func(pw *string) error {
		plain, err := decryptField(key, *pw)
		if err != nil {
			return err
		}
		*pw = plain
		return nil
	}); err != nil {
		return err
	}
	for i := range presets {
		plain, err := decryptField(key, presets[i].Password)
		if err != nil {
			return err
		}
		presets[i].Password = plain
	}
	return nil
}

// walkPasswords visits every password-bearing field reachable from nodes:
// SSHProtocol.Auth.Password (when Method is Password) and
// TelnetProtocol.Password.
func walkPasswords(nodes []SessionNode, visit func(*string) error) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *SessionGroup:
			if err := walkPasswords(v.Children, visit); err != nil {
				return err
			}
		case *SessionConfig:
			switch p := v.Protocol.(type) {
			case *SSHProtocol:
				if p.Auth.Method == AuthPassword {
					if err := visit(&p.Auth.Password); err != nil {
						return err
					}
				}
			case *TelnetProtocol:
				if err := visit(&p.Password); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
