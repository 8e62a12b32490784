// common/config_env.go

package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with RPP_* environment variables. Values that do not
// parse are ignored and the file value is kept.
func ApplyEnv(cfg GlobalConfig) GlobalConfig {
	cfg.EncoderPath = envStr(EnvFFmpeg, cfg.EncoderPath)
	cfg.Concurrency = envInt(EnvConcurrency, cfg.Concurrency)
	cfg.StagingRoot = envStr(EnvStagingDir, cfg.StagingRoot)
	cfg.LibraryKey = envStr(EnvLibraryKey, cfg.LibraryKey)
	cfg.Language = envStr(EnvLanguage, cfg.Language)
	cfg.ExtraAIFF = envList(EnvExtraAIFF, cfg.ExtraAIFF)
	cfg.ExtraMP3 = envList(EnvExtraMP3, cfg.ExtraMP3)

	if d := envDuration(EnvTaskTimeout, 0); d > 0 {
		cfg.TaskTimeoutSeconds = int(d / time.Second)
		if cfg.TaskTimeoutSeconds == 0 {
			cfg.TaskTimeoutSeconds = 1
		}
	}
	return withDefaults(cfg)
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("90s", "5m") or plain seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
