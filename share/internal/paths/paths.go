// Package paths centralizes the default filesystem locations the sharing
// core uses, kept separate from the root share package so that
// share/config (which needs these defaults) never has to import share
// itself.
package paths

import (
	"os"
	"path/filepath"
)

var (
	AppName    = "sharecore"
	ConfigPath = filepath.Join(homeDir(), ".config", AppName)
	CacheDir   = filepath.Join(ConfigPath, "cache")
	RegistryDSN = "file:" + filepath.Join(ConfigPath, "registry.db")
)

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			return cwd
		}
		return os.TempDir()
	}
	return dir
}
