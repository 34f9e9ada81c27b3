// Package sshtransport implements the SSH authenticator, session, session
// pool, and terminal connection adapter described by the core's SSH
// components: an authenticated, multiplexed transport that a session
// manager reuses across terminal channels.
package sshtransport

import "time"

// HostKey identifies a pooled SSH session by the tuple the session manager
// deduplicates on. Equality and hashing (as a Go map key) are by all three
// fields.
type HostKey struct {
	Host     string
	Port     int
	Username string
}

// AuthConfig selects how a session authenticates.
type AuthConfig struct {
	Method AuthMethod

	// Password is used when Method is AuthPassword.
	Password string

	// KeyPath and Passphrase are used when Method is AuthPrivateKey.
	KeyPath    string
	Passphrase string
}

type AuthMethod int

const (
	// AuthAuto tries the default key files in canonical order:
	// id_ed25519, id_rsa, id_ecdsa, id_dsa, skipping files that don't exist.
	AuthAuto AuthMethod = iota
	AuthPassword
	AuthPrivateKey
)

// Config describes one SSH destination and how to authenticate to it.
type Config struct {
	Host     string
	Port     int
	Username string
	Auth     AuthConfig
	Env      map[string]string

	// KeepaliveInterval is the interval between keepalive@openssh.com
	// requests; zero or negative selects 30 seconds. Three consecutive
	// missed replies disconnect the session.
	KeepaliveInterval time.Duration

	// InitialCommand, if set, is written to the shell (with a trailing
	// newline) immediately after the channel is opened.
	InitialCommand string
}

// HostKeyTuple returns the pooling key for cfg, resolving the username the same
// way session construction does: explicit config > $USER > $USERNAME >
// "root".
func (c Config) HostKeyTuple(resolveUsername func(configured string) string) HostKey {
	return HostKey{Host: c.Host, Port: c.Port, Username: resolveUsername(c.Username)}
}
