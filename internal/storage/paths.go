// Package storage persists search analysis and perft counts between runs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName     = "bitchess"
	analysisDir = "analysis"

	// dataDirEnv overrides the platform data directory.
	dataDirEnv = "BITCHESS_DATA_DIR"
)

// GetDataDir returns the data directory of bitchess, creating it if needed.
// $BITCHESS_DATA_DIR wins; otherwise it lives under the platform's
// per-user data location (Application Support on macOS, %APPDATA% on
// Windows, $XDG_DATA_HOME or ~/.local/share elsewhere).
func GetDataDir() (string, error) {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return ensureDir(dir)
	}
	base, err := platformDataHome()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(base, appName))
}

// GetDatabaseDir returns the directory holding the analysis database.
func GetDatabaseDir() (string, error) {
	data, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(data, analysisDir))
}

func platformDataHome() (string, error) {
	var env string
	var fallback []string
	switch runtime.GOOS {
	case "darwin":
		fallback = []string{"Library", "Application Support"}
	case "windows":
		env, fallback = "APPDATA", []string{"AppData", "Roaming"}
	default:
		env, fallback = "XDG_DATA_HOME", []string{".local", "share"}
	}
	if env != "" {
		if dir := os.Getenv(env); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating data directory: %w", err)
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}
