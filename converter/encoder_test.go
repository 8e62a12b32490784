package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"RekordPdbPatcher/formats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFFmpegArgs(t *testing.T) {
	enc := NewFFmpegEncoder("", 0, nil)
	assert.Equal(t, FFmpegCommand, enc.Binary)
	assert.Equal(t, DefaultTaskTimeout, enc.Timeout)

	tests := []struct {
		name   string
		target formats.TargetFormat
		want   []string
	}{
		{
			name:   "aiff",
			target: formats.AIFF,
			want: []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "in.flac",
				"-map_metadata", "0", "-c:a", "pcm_s16be", "-write_id3v2", "1", "out.aiff"},
		},
		{
			name:   "mp3",
			target: formats.MP3,
			want: []string{"-nostdin", "-hide_banner", "-loglevel", "error", "-y", "-i", "in.flac",
				"-map_metadata", "0", "-c:a", "libmp3lame", "-b:a", "320k", "-id3v2_version", "3", "out.aiff"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := enc.BuildArgs("in.flac", "out.aiff", tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, args)
		})
	}

	_, err := enc.BuildArgs("in.flac", "out.ogg", formats.TargetFormat{Name: "ogg", Extension: ".ogg"})
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

// writeScript creates an executable shell script standing in for ffmpeg
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestFFmpegEncoderSuccess(t *testing.T) {
	script := writeScript(t, `for last; do :; done; echo encoded > "$last"`)
	dst := filepath.Join(t.TempDir(), "out.aiff")

	err := NewFFmpegEncoder(script, time.Minute, nil).Encode(context.Background(), "in.flac", dst, formats.AIFF)
	require.NoError(t, err)
	assert.FileExists(t, dst)
}

func TestFFmpegEncoderFailureCapturesDiagnostic(t *testing.T) {
	script := writeScript(t, `echo "in.flac: Invalid data found when processing input" >&2; exit 1`)

	err := NewFFmpegEncoder(script, time.Minute, nil).Encode(context.Background(), "in.flac", filepath.Join(t.TempDir(), "out.aiff"), formats.AIFF)
	var encErr *EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 1, encErr.ExitCode)
	assert.False(t, encErr.Timeout)
	assert.Contains(t, encErr.Diagnostic, "Invalid data found")
	assert.Contains(t, err.Error(), "in.flac")
}

func TestFFmpegEncoderEmptyOutput(t *testing.T) {
	script := writeScript(t, `exit 0`)

	err := NewFFmpegEncoder(script, time.Minute, nil).Encode(context.Background(), "in.flac", filepath.Join(t.TempDir(), "out.aiff"), formats.AIFF)
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestFFmpegEncoderTimeoutKillsProcess(t *testing.T) {
	script := writeScript(t, `exec sleep 30`)

	start := time.Now()
	err := NewFFmpegEncoder(script, 200*time.Millisecond, nil).Encode(context.Background(), "in.flac", filepath.Join(t.TempDir(), "out.aiff"), formats.AIFF)
	elapsed := time.Since(start)

	var encErr *EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.True(t, encErr.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 10*time.Second)

	r := Result{Err: err}
	assert.True(t, r.IsTimeout())
}

func TestFFmpegEncoderParentCancelIsNotTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	err := NewFFmpegEncoder(script, time.Minute, nil).Encode(ctx, "in.flac", filepath.Join(t.TempDir(), "out.aiff"), formats.AIFF)
	var encErr *EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.False(t, encErr.Timeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFFmpegEncoderAvailable(t *testing.T) {
	assert.False(t, NewFFmpegEncoder(filepath.Join(t.TempDir(), "missing-ffmpeg"), 0, nil).Available(context.Background()))

	script := writeScript(t, `echo "ffmpeg version test"`)
	assert.True(t, NewFFmpegEncoder(script, 0, nil).Available(context.Background()))
}
