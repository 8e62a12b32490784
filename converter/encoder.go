// converter/encoder.go

// Package converter runs the external encoder over discovered files with a bounded
// worker pool, either directly on the device or through a local staging directory.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/formats"
)

// FFmpeg constants for the supported target formats
const (
	FFmpegCommand = "ffmpeg"

	// AIFF: uncompressed 16-bit big endian PCM
	CodecPCM16BE = "pcm_s16be"

	// MP3: constant bitrate LAME
	CodecMP3   = "libmp3lame"
	MP3Bitrate = "320k"

	// DefaultTaskTimeout bounds a single encoder run
	DefaultTaskTimeout = 5 * time.Minute

	// waitDelay bounds how long Wait keeps draining pipes after the process was killed
	waitDelay = 5 * time.Second

	// diagnosticLimit is the number of stderr bytes kept per failed task
	diagnosticLimit = 2048
)

// Encoder turns src into dst in the target format. Implementations must either
// leave a complete file at dst and return nil, or return an error.
type Encoder interface {
	Encode(ctx context.Context, src, dst string, target formats.TargetFormat) error
}

var (
	// ErrEmptyOutput is returned when the encoder exits cleanly but leaves no usable file
	ErrEmptyOutput = errors.New("encoder produced no output")
	// ErrUnsupportedTarget is returned for target formats the encoder has no parameters for
	ErrUnsupportedTarget = errors.New("unsupported target format")
)

// EncodeError describes a failed encoder run
type EncodeError struct {
	Source     string
	ExitCode   int
	Timeout    bool
	Diagnostic string
	Err        error
}

func (e *EncodeError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("encoding %s timed out", filepath.Base(e.Source))
	case e.Diagnostic != "":
		return fmt.Sprintf("encoding %s failed (exit %d): %s", filepath.Base(e.Source), e.ExitCode, e.Diagnostic)
	default:
		return fmt.Sprintf("encoding %s failed: %v", filepath.Base(e.Source), e.Err)
	}
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// FFmpegEncoder runs ffmpeg once per file
type FFmpegEncoder struct {
	Binary  string
	Timeout time.Duration
	Logger  *common.Logger
}

// NewFFmpegEncoder creates an encoder. Empty binary and zero timeout select the defaults.
func NewFFmpegEncoder(binary string, timeout time.Duration, logger *common.Logger) *FFmpegEncoder {
	if binary == "" {
		binary = FFmpegCommand
	}
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &FFmpegEncoder{Binary: binary, Timeout: timeout, Logger: logger}
}

// BuildArgs returns the ffmpeg argument list for one conversion
func (e *FFmpegEncoder) BuildArgs(src, dst string, target formats.TargetFormat) ([]string, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", src,
		"-map_metadata", "0",
	}

	switch target.Name {
	case formats.AIFF.Name:
		args = append(args, "-c:a", CodecPCM16BE, "-write_id3v2", "1")
	case formats.MP3.Name:
		args = append(args, "-c:a", CodecMP3, "-b:a", MP3Bitrate, "-id3v2_version", "3")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target.Name)
	}

	return append(args, dst), nil
}

// Encode runs ffmpeg under the per-task deadline. When the deadline passes the
// child process is killed and an EncodeError with Timeout set is returned.
func (e *FFmpegEncoder) Encode(ctx context.Context, src, dst string, target formats.TargetFormat) error {
	args, err := e.BuildArgs(src, dst, target)
	if err != nil {
		return err
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(taskCtx, e.Binary, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	e.Logger.Debug("Running %s %s", e.Binary, strings.Join(args, " "))

	runErr := cmd.Run()
	if runErr != nil {
		encErr := &EncodeError{
			Source:     src,
			ExitCode:   -1,
			Diagnostic: common.Truncate(strings.TrimSpace(stderr.String()), diagnosticLimit),
			Err:        runErr,
		}
		if cmd.ProcessState != nil {
			encErr.ExitCode = cmd.ProcessState.ExitCode()
		}
		if ctxErr := taskCtx.Err(); ctxErr != nil {
			encErr.Err = ctxErr
			encErr.Timeout = errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil
		}
		return encErr
	}

	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		return &EncodeError{Source: src, Err: ErrEmptyOutput}
	}

	return nil
}

// Available reports whether the encoder binary can be found and started
func (e *FFmpegEncoder) Available(ctx context.Context) bool {
	path, err := exec.LookPath(e.Binary)
	if err != nil {
		e.Logger.Warning("Encoder %q not found: %v", e.Binary, err)
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, path, "-version")
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		e.Logger.Warning("Encoder %q did not start: %v", path, err)
		return false
	}
	return true
}
