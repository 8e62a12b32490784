// common/config_default.go

package common

import (
	"time"
)

// Default values for settings.conf
const (
	DefaultLanguage           = "en"
	DefaultEncoderPath        = "ffmpeg"
	DefaultTaskTimeoutSeconds = 300
	DefaultLogMaxSizeMB       = 10
	DefaultLogMaxAgeDays      = 7
)

// Keys used by the USB patcher module in its ModuleConfig
const (
	KeyDevicePath    = "device_path"
	KeyMode          = "mode"
	KeyStaged        = "staged"
	KeyKeepOriginals = "keep_originals"
	KeyLibraryMode   = "library_mode"
)

// DefaultGlobalConfig returns the settings used when settings.conf is missing.
// Concurrency 0 means "derive from the number of CPUs".
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Language:           DefaultLanguage,
		EncoderPath:        DefaultEncoderPath,
		TaskTimeoutSeconds: DefaultTaskTimeoutSeconds,
		LogMaxSizeMB:       DefaultLogMaxSizeMB,
		LogMaxAgeDays:      DefaultLogMaxAgeDays,
	}
}

// withDefaults fills zero or invalid values from DefaultGlobalConfig
func withDefaults(cfg GlobalConfig) GlobalConfig {
	def := DefaultGlobalConfig()
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.EncoderPath == "" {
		cfg.EncoderPath = def.EncoderPath
	}
	if cfg.Concurrency < 0 {
		cfg.Concurrency = 0
	}
	if cfg.TaskTimeoutSeconds <= 0 {
		cfg.TaskTimeoutSeconds = def.TaskTimeoutSeconds
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = def.LogMaxSizeMB
	}
	if cfg.LogMaxAgeDays <= 0 {
		cfg.LogMaxAgeDays = def.LogMaxAgeDays
	}
	return cfg
}

// TaskTimeout returns the per-file encoder deadline
func (cfg GlobalConfig) TaskTimeout() time.Duration {
	if cfg.TaskTimeoutSeconds <= 0 {
		return DefaultTaskTimeoutSeconds * time.Second
	}
	return time.Duration(cfg.TaskTimeoutSeconds) * time.Second
}

// ExtraGroups returns user supplied source extensions keyed by target format name
func (cfg GlobalConfig) ExtraGroups() map[string][]string {
	extra := make(map[string][]string)
	if len(cfg.ExtraAIFF) > 0 {
		extra["aiff"] = cfg.ExtraAIFF
	}
	if len(cfg.ExtraMP3) > 0 {
		extra["mp3"] = cfg.ExtraMP3
	}
	return extra
}
