// pipeline/options.go

package pipeline

import (
	"fmt"
	"strings"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/library"
)

// Mode selects which phases run
type Mode int

const (
	// ModeFull converts and then patches
	ModeFull Mode = iota
	// ModeConvertOnly converts without touching the catalog files
	ModeConvertOnly
	// ModePatchOnly patches the catalog files using every known convertible extension
	ModePatchOnly
)

// String returns the configuration value of the mode
func (m Mode) String() string {
	switch m {
	case ModeConvertOnly:
		return "convert-only"
	case ModePatchOnly:
		return "patch-only"
	default:
		return "full"
	}
}

// Converts reports whether the mode runs the conversion phase
func (m Mode) Converts() bool {
	return m != ModePatchOnly
}

// Patches reports whether the mode runs the patch phase
func (m Mode) Patches() bool {
	return m != ModeConvertOnly
}

// ParseMode parses a mode name as written by Mode.String
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, nil
	case "convert-only", "convert":
		return ModeConvertOnly, nil
	case "patch-only", "patch":
		return ModePatchOnly, nil
	}
	return ModeFull, fmt.Errorf("unknown mode %q", s)
}

// Options configure one run
type Options struct {
	DevicePath    string
	Mode          Mode
	Staged        bool
	KeepOriginals bool
	// Concurrency <= 0 selects converter.DefaultConcurrency
	Concurrency int
	// TaskTimeout <= 0 selects converter.DefaultTaskTimeout
	TaskTimeout time.Duration
	// StagingRoot is the parent of the staging directory; empty uses the system temp dir
	StagingRoot string
	DryRun      bool
	Library     library.Mode
	LibraryKey  string
	EncoderPath string
	// ExtraGroups adds source extensions per target format name ("aiff", "mp3")
	ExtraGroups map[string][]string
}

// DefaultOptions returns staged full-mode options for devicePath
func DefaultOptions(devicePath string) Options {
	return Options{
		DevicePath:  devicePath,
		Mode:        ModeFull,
		Staged:      true,
		EncoderPath: common.DefaultEncoderPath,
	}
}

// OptionsFromConfig fills the ambient settings from the global configuration
func OptionsFromConfig(devicePath string, cfg common.GlobalConfig) Options {
	opts := DefaultOptions(devicePath)
	opts.Concurrency = cfg.Concurrency
	opts.TaskTimeout = cfg.TaskTimeout()
	opts.StagingRoot = cfg.StagingRoot
	opts.LibraryKey = cfg.LibraryKey
	opts.ExtraGroups = cfg.ExtraGroups()
	if cfg.EncoderPath != "" {
		opts.EncoderPath = cfg.EncoderPath
	}
	return opts
}
