package config

import (
	"os"
	"path/filepath"
)

// UserConfigPath returns the path to the user-level config file.
// This follows the XDG Base Directory Specification:
// - Linux: ~/.config/chlog/config.yml
// - macOS: ~/Library/Application Support/chlog/config.yml
// - Windows: %APPDATA%\chlog\config.yml
//
// If XDG_CONFIG_HOME is set, it will be respected on Linux.
func UserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "chlog", "config.yml"), nil
}

// ProjectConfigPath returns the project-level config file name, relative to
// the project root.
func ProjectConfigPath() string {
	return ".chlog.yml"
}

// JSONProjectConfigPath returns the file name of the project config when it
// is written as JSON.
func JSONProjectConfigPath() string {
	return ".chlog.json"
}
