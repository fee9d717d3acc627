package config

import (
	"os"
	"path/filepath"
)

// GetRuntimePath resolves TUSKNET_RUNTIME_PATH. Relative paths live under
// the user's home directory.
func GetRuntimePath() string {
	path := os.Getenv("TUSKNET_RUNTIME_PATH")
	if path == "" {
		path = ".tusknet"
	}

	if !filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path)
	}
	return path
}

func GetEnvPath() string {
	return filepath.Join(GetRuntimePath(), ".env")
}
