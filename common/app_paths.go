// common/app_paths.go

package common

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppDataDir returns the per-user application directory, or "" when the
// platform has none
func AppDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, AppName)
}

// ResolveAppFile picks where an application file lives: an existing file in the
// working directory wins, then the per-user application directory (created on
// demand), then the working directory as a fallback.
func ResolveAppFile(name string, subdirs ...string) string {
	local := name
	if FileExists(local) {
		return local
	}

	if appData := AppDataDir(); appData != "" {
		dir := filepath.Join(append([]string{appData}, subdirs...)...)
		if err := EnsureDirectoryExists(dir); err == nil {
			return filepath.Join(dir, name)
		}
	}
	return local
}

// OpenAppConfig loads settings.conf from its resolved location. A parse error is
// returned together with a usable manager holding the defaults.
func OpenAppConfig() (*ConfigManager, error) {
	return NewConfigManager(ResolveAppFile(FileNameSettings))
}

// OpenAppLogger opens the application log using the size and age limits of cfg
func OpenAppLogger(cfg GlobalConfig) (*Logger, error) {
	path := ResolveAppFile(FileNameLog, FolderNameLog)
	logger, err := NewLogger(path, cfg.LogMaxSizeMB, cfg.LogMaxAgeDays)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	logger.SetDebug(cfg.Debug)
	return logger, nil
}
