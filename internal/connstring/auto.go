package connstring

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Candidate is one connection recognized from free-form pasted text.
type Candidate struct {
	Host     string
	Port     int // 0 means unspecified; resolve with ResolvedPort.
	Username string
	Password string

	// Text is the raw matched span, for UI highlighting in the source text.
	Text string
}

// ResolvedPort returns c.Port if explicit, else the default for protocol
// ("ssh" → 22, anything else → 23, matching Telnet's default).
func (c Candidate) ResolvedPort(protocol string) int {
	if c.Port != 0 {
		return c.Port
	}
	if protocol == "ssh" {
		return 22
	}
	return 23
}

var ipPortRe = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d{1,5})$`)
var ipRe = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// ParseAutoRecognize scans text line by line for three forms: bare IP,
// IP:port, and "IP user pass". Lines that match none of these are ignored.
func ParseAutoRecognize(text string) []Candidate {
	var candidates []Candidate

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) == 0 {
			continue
		}
		first := fields[0]

		if m := ipPortRe.FindStringSubmatch(first); m != nil {
			if net.ParseIP(m[1]) == nil {
				continue
			}
			port, err := strconv.Atoi(m[2])
			if err != nil || port == 0 || port > 65535 {
				continue
			}
			candidates = append(candidates, Candidate{Host: m[1], Port: port, Text: trimmed})
			continue
		}

		if ipRe.MatchString(first) && net.ParseIP(first) != nil {
			if len(fields) >= 3 {
				candidates = append(candidates, Candidate{
					Host: first, Username: fields[1], Password: fields[2], Text: trimmed,
				})
			} else {
				candidates = append(candidates, Candidate{Host: first, Text: trimmed})
			}
		}
	}

	return candidates
}
