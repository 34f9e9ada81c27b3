// Package connstring parses connection strings two ways: a strict
// "user@host[:port]" form for direct entry, and a free-form auto-recognize
// scan over pasted text that pulls out zero or more candidate connections.
package connstring

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseStrict parses a "user@host[:port]" connection string. If no port is
// given, defaultPort is used.
func ParseStrict(input string, defaultPort int) (user, host string, port int, err error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", "", 0, fmt.Errorf("Connection string required")
	}

	remainder := trimmed
	port = defaultPort
	if idx := strings.LastIndex(trimmed, ":"); idx >= 0 {
		suffix := trimmed[idx+1:]
		p, perr := strconv.ParseUint(suffix, 10, 16)
		if perr != nil {
			return "", "", 0, fmt.Errorf("Invalid port number")
		}
		port = int(p)
		remainder = trimmed[:idx]
	}

	atIdx := strings.Index(remainder, "@")
	if atIdx < 0 {
		return "", "", 0, fmt.Errorf("Format: user@host[:port]")
	}
	user, host = remainder[:atIdx], remainder[atIdx+1:]
	if user == "" || host == "" {
		return "", "", 0, fmt.Errorf("Username and host required")
	}
	return user, host, port, nil
}
