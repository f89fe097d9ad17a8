// Package settings loads the ambient settings file git-sync-world reads for
// logging verbosity and telemetry opt-in. These fields are deliberately
// outside the per-invocation Configuration (package cli): they never affect
// planning, hook selection, or walk outcomes.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	SettingsFile      = ".git-sync-world/settings.json"
	SettingsLocalFile = ".git-sync-world/settings.local.json"
)

// Settings holds the ambient, non-per-run configuration.
type Settings struct {
	// LogLevel sets logging verbosity (debug, info, warn, error). Overridden
	// by the GIT_SYNC_WORLD_LOG_LEVEL environment variable.
	LogLevel string `json:"log_level,omitempty"`

	// Telemetry controls anonymous usage counters. nil = not asked yet,
	// true = opted in, false = opted out.
	Telemetry *bool `json:"telemetry,omitempty"`
}

// Load reads rootDir's settings file, then applies the local override file
// if present. Returns zero-value Settings if neither file exists.
func Load(rootDir string) (*Settings, error) {
	base, err := loadFromFile(filepath.Join(rootDir, SettingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(filepath.Join(rootDir, SettingsLocalFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
		return base, nil
	}

	if err := mergeJSON(base, localData); err != nil {
		return nil, fmt.Errorf("merging local settings: %w", err)
	}
	return base, nil
}

func loadFromFile(path string) (*Settings, error) {
	s := &Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return s, nil
}

// mergeJSON applies only the fields present in data onto s, so a local
// override file that omits a field leaves the project setting untouched.
func mergeJSON(s *Settings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			s.LogLevel = ll
		}
	}

	if telemetryRaw, ok := raw["telemetry"]; ok {
		var t bool
		if err := json.Unmarshal(telemetryRaw, &t); err != nil {
			return fmt.Errorf("parsing telemetry field: %w", err)
		}
		s.Telemetry = &t
	}

	return nil
}
