// Package store implements the hierarchical session tree: groups and saved
// sessions arranged in an ordered tree, persisted as a single JSON document,
// with credential presets kept alongside it for quick reuse in connect
// dialogs.
package store

import (
	"encoding/json"
	"fmt"
)

// CurrentVersion is written into every persisted store and is carried
// forward unchanged by stores loaded under it; a later version number would
// signal a migration is needed.
const CurrentVersion = 1

// SessionNode is either a SessionGroup or a SessionConfig. Both are backed
// by pointers, so a SessionNode obtained from Find/FindLocation aliases the
// live tree: mutating through it (e.g. g.Expanded = false) mutates the
// store directly.
type SessionNode interface {
	NodeID() string
	NodeName() string
	isSessionNode()
}

// SessionGroup is a folder of child nodes.
type SessionGroup struct {
	ID       string
	Name     string
	Expanded bool
	Children []SessionNode
}

func (g *SessionGroup) NodeID() string   { return g.ID }
func (g *SessionGroup) NodeName() string { return g.Name }
func (*SessionGroup) isSessionNode()     {}

func (g *SessionGroup) MarshalJSON() ([]byte, error) {
	type alias struct {
		Type     string       `json:"type"`
		ID       string       `json:"id"`
		Name     string       `json:"name"`
		Expanded bool         `json:"expanded"`
		Children []SessionNode `json:"children"`
	}
	children := g.Children
	if children == nil {
		children = []SessionNode{}
	}
	return json.Marshal(alias{"Group", g.ID, g.Name, g.Expanded, children})
}

// SessionConfig is a saved connection: a name, free-form tags, and the
// protocol-specific configuration needed to open it.
type SessionConfig struct {
	ID       string
	Name     string
	Tags     []string
	Protocol ProtocolConfig
}

func (s *SessionConfig) NodeID() string   { return s.ID }
func (s *SessionConfig) NodeName() string { return s.Name }
func (*SessionConfig) isSessionNode()     {}

func (s *SessionConfig) MarshalJSON() ([]byte, error) {
	type alias struct {
		Type     string         `json:"type"`
		ID       string         `json:"id"`
		Name     string         `json:"name"`
		Tags     []string       `json:"tags"`
		Protocol ProtocolConfig `json:"protocol"`
	}
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(alias{"Session", s.ID, s.Name, tags, s.Protocol})
}

// ProtocolConfig is either an SSHProtocol or a TelnetProtocol.
type ProtocolConfig interface {
	protocolTag() string
}

// AuthMethod selects how an SSH session authenticates. Exactly the fields
// relevant to Method are populated; the rest are left zero and omitted from
// JSON.
type AuthMethod struct {
	Method     string `json:"method"`
	Password   string `json:"password,omitempty"`
	Path       string `json:"path,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
}

const (
	AuthInteractive = "Interactive"
	AuthPassword    = "Password"
	AuthPrivateKey  = "PrivateKey"
	AuthAgent       = "Agent"
)

// SSHProtocol is the SSH-specific half of a SessionConfig's protocol block.
type SSHProtocol struct {
	Host                  string
	Port                  int
	Username              string
	Auth                  AuthMethod
	Env                   map[string]string
	KeepaliveIntervalSecs int
	InitialCommand        *string
}

func (*SSHProtocol) protocolTag() string { return "Ssh" }

func (p *SSHProtocol) MarshalJSON() ([]byte, error) {
	type alias struct {
		Protocol              string            `json:"protocol"`
		Host                  string            `json:"host"`
		Port                  int               `json:"port"`
		Username              string            `json:"username"`
		Auth                  AuthMethod        `json:"auth"`
		Env                   map[string]string `json:"env"`
		KeepaliveIntervalSecs int               `json:"keepalive_interval_secs"`
		InitialCommand        *string           `json:"initial_command"`
	}
	env := p.Env
	if env == nil {
		env = map[string]string{}
	}
	return json.Marshal(alias{"Ssh", p.Host, p.Port, p.Username, p.Auth, env, p.KeepaliveIntervalSecs, p.InitialCommand})
}

// TelnetProtocol is the Telnet-specific half of a SessionConfig's protocol
// block.
type TelnetProtocol struct {
	Host     string
	Port     int
	Username string
	Password string
	Encoding string
}

func (*TelnetProtocol) protocolTag() string { return "Telnet" }

func (p *TelnetProtocol) MarshalJSON() ([]byte, error) {
	type alias struct {
		Protocol string `json:"protocol"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		Encoding string `json:"encoding"`
	}
	return json.Marshal(alias{"Telnet", p.Host, p.Port, p.Username, p.Password, p.Encoding})
}

// CredentialPreset is a reusable username/password pair offered when filling
// in a connect dialog. It has no back-reference to any SessionConfig.
type CredentialPreset struct {
	ID       string
	Name     string
	Username string
	Password string
}

// unmarshalNodes decodes a JSON array of tagged SessionNode objects.
func unmarshalNodes(raws []json.RawMessage) ([]SessionNode, error) {
	nodes := make([]SessionNode, 0, len(raws))
	for _, raw := range raws {
		n, err := unmarshalNode(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func unmarshalNode(data []byte) (SessionNode, error) {
	var raw struct {
		Type     string            `json:"type"`
		ID       string            `json:"id"`
		Name     string            `json:"name"`
		Expanded *bool             `json:"expanded"`
		Children []json.RawMessage `json:"children"`
		Tags     []string          `json:"tags"`
		Protocol json.RawMessage   `json:"protocol"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: decode node: %w", err)
	}

	switch raw.Type {
	case "Group":
		children, err := unmarshalNodes(raw.Children)
		if err != nil {
			return nil, err
		}
		expanded := true
		if raw.Expanded != nil {
			expanded = *raw.Expanded
		}
		return &SessionGroup{ID: raw.ID, Name: raw.Name, Expanded: expanded, Children: children}, nil

	case "Session":
		protocol, err := unmarshalProtocol(raw.Protocol)
		if err != nil {
			return nil, err
		}
		return &SessionConfig{ID: raw.ID, Name: raw.Name, Tags: raw.Tags, Protocol: protocol}, nil

	default:
		return nil, fmt.Errorf("store: unknown node type %q", raw.Type)
	}
}

func unmarshalProtocol(data []byte) (ProtocolConfig, error) {
	var raw struct {
		Protocol string `json:"protocol"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: decode protocol: %w", err)
	}

	switch raw.Protocol {
	case "Ssh":
		var p struct {
			Host                  string            `json:"host"`
			Port                  int               `json:"port"`
			Username              string            `json:"username"`
			Auth                  AuthMethod        `json:"auth"`
			Env                   map[string]string `json:"env"`
			KeepaliveIntervalSecs int               `json:"keepalive_interval_secs"`
			InitialCommand        *string           `json:"initial_command"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: decode ssh protocol: %w", err)
		}
		return &SSHProtocol{
			Host: p.Host, Port: p.Port, Username: p.Username, Auth: p.Auth,
			Env: p.Env, KeepaliveIntervalSecs: p.KeepaliveIntervalSecs, InitialCommand: p.InitialCommand,
		}, nil

	case "Telnet":
		var p struct {
			Host     string `json:"host"`
			Port     int    `json:"port"`
			Username string `json:"username"`
			Password string `json:"password"`
			Encoding string `json:"encoding"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: decode telnet protocol: %w", err)
		}
		return &TelnetProtocol{Host: p.Host, Port: p.Port, Username: p.Username, Password: p.Password, Encoding: p.Encoding}, nil

	default:
		return nil, fmt.Errorf("store: unknown protocol %q", raw.Protocol)
	}
}
