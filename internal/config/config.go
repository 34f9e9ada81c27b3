package config

import (
	"log"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds the process-wide configuration, loaded once from the
// environment at startup.
type Settings struct {
	DataPath string `envconfig:"DATA_PATH" default:"/app/data"`
	LogPath  string `envconfig:"LOG_PATH" default:""`

	SessionsFileName string `envconfig:"SESSIONS_FILE_NAME" default:"sessions.json"`

	DefaultKeepaliveSecs int `envconfig:"DEFAULT_KEEPALIVE_SECS" default:"30"`
	DefaultSSHPort       int `envconfig:"DEFAULT_SSH_PORT" default:"22"`
	DefaultTelnetPort    int `envconfig:"DEFAULT_TELNET_PORT" default:"23"`
}

var Cfg Settings

// Load populates Cfg from the environment, exiting the process on a
// malformed value.
func Load() {
	if err := envconfig.Process("WHARF", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}

// SessionsFilePath returns the full path to the session store's JSON
// document under DataPath.
func (s Settings) SessionsFilePath() string {
	return filepath.Join(s.DataPath, s.SessionsFileName)
}
