// Package config provides configuration management for nebula-upload.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir is the standard configuration directory name
const ConfigDir = "nebula"

// ConfigFileName is the default config file name inside ConfigDir
const ConfigFileName = "upload.csv"

// getConfigDir returns the platform-appropriate config directory.
// - Windows: %APPDATA%\Nebula
// - Unix: ~/.config/nebula (XDG standard)
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Nebula")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// GetDefaultConfigPath returns the default config file path
// (~/.config/nebula/upload.csv on Unix).
func GetDefaultConfigPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return ConfigFileName
	}
	return filepath.Join(configDir, ConfigFileName)
}
