package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "vitalarbor"

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if configDir, err := os.UserConfigDir(); err == nil && runtime.GOOS == "windows" {
		paths = append(paths, filepath.Join(configDir, appDirName))
	} else if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", appDirName))
	}

	return paths
}

// DefaultConfigFile returns the path `config init` writes to when no path
// is given.
func DefaultConfigFile() string {
	paths := GetDefaultConfigPaths()
	return filepath.Join(paths[len(paths)-1], "config.yaml")
}
