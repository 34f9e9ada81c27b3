package sshtransport

import (
	"fmt"
	"log"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/wharfterm/wharf/internal/logutil"
)

// FingerprintMismatchError indicates a host's key fingerprint changed
// between two connection attempts within this process. It is never
// returned as an error from the trust store's callback (the core is
// trust-on-first-use throughout); it exists so future callers that do want
// to enforce verification have a typed error to check for.
type FingerprintMismatchError struct {
	Host     HostKey
	Expected string
	Actual   string
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("ssh: host key fingerprint changed for %s:%d: expected %s, got %s",
		e.Host.Host, e.Host.Port, e.Expected, e.Actual)
}

// TrustStore is a trust-on-first-use host key tracker. It never rejects a
// connection: spec behavior for this core is TOFU, and "real
// implementations may plug in verification" is explicitly left as an open
// question. The store only adds observability: a second connection to the
// same host within the process logs a warning if the fingerprint changed.
type TrustStore struct {
	mu           sync.Mutex
	fingerprints map[HostKey]string
}

// NewTrustStore creates an empty, process-lifetime trust store.
func NewTrustStore() *TrustStore {
	return &TrustStore{fingerprints: make(map[HostKey]string)}
}

// Callback returns an ssh.HostKeyCallback bound to key that records the
// first-seen fingerprint and warns (never rejects) on a later mismatch.
func (t *TrustStore) Callback(key HostKey) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, pubKey ssh.PublicKey) error {
		actual := ssh.FingerprintSHA256(pubKey)

		t.mu.Lock()
		expected, seen := t.fingerprints[key]
		if !seen {
			t.fingerprints[key] = actual
		}
		t.mu.Unlock()

		if seen && expected != actual {
			log.Printf("[ssh] WARNING: host key fingerprint changed for %s — expected %s, got %s",
				logutil.SanitizeForLog(hostname), expected, actual)
		}
		return nil
	}
}

// Fingerprint returns the recorded fingerprint for key, if any connection
// has been made to it yet.
func (t *TrustStore) Fingerprint(key HostKey) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fp, ok := t.fingerprints[key]
	return fp, ok
}
