package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig configures the terminal client and admin CLI.
type ClientConfig struct {
	APIBaseURL     string
	StateDir       string
	LogFile        string
	SearchDebounce time.Duration
	LogLevel       slog.Level
}

// LoadClientConfig reads client settings from the environment.
func LoadClientConfig() ClientConfig {
	stateDir := GetString("CRM_STATE_DIR", defaultStateDir())
	return ClientConfig{
		APIBaseURL:     GetString("CRM_API_URL", "http://localhost:4000"),
		StateDir:       stateDir,
		LogFile:        GetString("CRM_LOG_FILE", filepath.Join(stateDir, "crm.log")),
		SearchDebounce: GetDuration("CRM_SEARCH_DEBOUNCE_MS", 300, time.Millisecond),
		LogLevel:       GetLevel("CRM_LOG_LEVEL", slog.LevelInfo),
	}
}

func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".cornerstone"
	}
	return filepath.Join(base, "cornerstone")
}
