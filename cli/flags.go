// cli/flags.go

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/pipeline"
)

var (
	errNoDevice      = errors.New("missing device path")
	errTooManyArgs   = errors.New("more than one device path given")
	errModeConflict  = errors.New("--patch-only and --convert-only cannot be combined")
	errRestoreDryRun = errors.New("--restore cannot be combined with --dry-run")
)

// options is the parsed command line
type options struct {
	pipeline.Options
	restore    bool
	noProgress bool
	verbose    bool
}

const usageHeader = `Usage: %s [flags] <device path>

Converts audio files a Rekordbox export device cannot play and rewrites the
file extensions inside the device catalog files to match.

Flags:
`

// parseArgs reads flags and the device path. Defaults come from cfg, which
// already carries the settings file and environment overrides. Flags may
// appear before or after the device path.
func parseArgs(args []string, cfg common.GlobalConfig, stderr io.Writer) (options, error) {
	opts := options{Options: pipeline.OptionsFromConfig("", cfg)}

	fs := flag.NewFlagSet(common.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usageHeader, common.AppName)
		fs.PrintDefaults()
	}

	var (
		patchOnly, convertOnly, direct bool
		libraryMode                    string
	)
	fs.BoolVar(&patchOnly, "patch-only", false, "only rewrite catalog files, inferring the mapping from all convertible extensions")
	fs.BoolVar(&convertOnly, "convert-only", false, "only convert audio files, leave catalog files untouched")
	fs.BoolVar(&opts.KeepOriginals, "keep-originals", false, "keep source files after successful conversion")
	fs.BoolVar(&direct, "direct", false, "encode directly on the device instead of through a local staging directory")
	fs.IntVar(&opts.Concurrency, "concurrency", cfg.Concurrency, "number of parallel encoder processes (0 = number of CPUs, at most 8)")
	fs.DurationVar(&opts.TaskTimeout, "timeout", cfg.TaskTimeout(), "per-file encoder timeout")
	fs.StringVar(&opts.StagingRoot, "staging-dir", cfg.StagingRoot, "parent directory for the staging directory (default system temp)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "report what would be converted and patched without writing anything")
	fs.BoolVar(&opts.restore, "restore", false, "copy catalog backups back over the catalog files and exit")
	fs.StringVar(&libraryMode, "library", library.ModeOff.String(), "exportLibrary.db handling: off, inspect or rewrite")
	fs.StringVar(&opts.LibraryKey, "library-key", cfg.LibraryKey, "SQLCipher key for exportLibrary.db (empty opens it as plain SQLite)")
	fs.StringVar(&opts.EncoderPath, "ffmpeg", opts.EncoderPath, "encoder binary")
	fs.BoolVar(&opts.noProgress, "no-progress", false, "print one line per file instead of a progress bar")
	fs.BoolVar(&opts.verbose, "verbose", cfg.Debug, "mirror debug output to the console")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch {
	case len(positional) == 0:
		return opts, errNoDevice
	case len(positional) > 1:
		return opts, fmt.Errorf("%w: %v", errTooManyArgs, positional)
	case patchOnly && convertOnly:
		return opts, errModeConflict
	case opts.restore && opts.DryRun:
		return opts, errRestoreDryRun
	case opts.Concurrency < 0:
		return opts, fmt.Errorf("invalid --concurrency %d", opts.Concurrency)
	case opts.TaskTimeout < time.Second:
		return opts, fmt.Errorf("invalid --timeout %s", opts.TaskTimeout)
	}

	mode, err := library.ParseMode(libraryMode)
	if err != nil {
		return opts, err
	}
	opts.Library = mode

	opts.DevicePath = positional[0]
	opts.Staged = !direct
	switch {
	case patchOnly:
		opts.Mode = pipeline.ModePatchOnly
	case convertOnly:
		opts.Mode = pipeline.ModeConvertOnly
	}
	return opts, nil
}
