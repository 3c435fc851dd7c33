package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings flowbit needs to reach the processing service.
type Config struct {
	ServerURL       string
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	MaxPollDuration time.Duration // zero polls until a terminal status
	RetryLimit      int           // zero surfaces the first poll failure
	LogFile         string
}

const (
	defaultConfigPath     = "~/.config/flowbit/config.toml"
	defaultLogFile        = "~/.local/state/flowbit/flowbit.log"
	defaultServerURL      = "http://127.0.0.1:8000"
	defaultPollInterval   = time.Second
	defaultRequestTimeout = 30 * time.Second
	minPollInterval       = 100 * time.Millisecond

	envServerURL    = "FLOWBIT_SERVER"
	envPollInterval = "FLOWBIT_POLL_MS"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:      defaultServerURL,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		LogFile:        mustExpand(defaultLogFile),
	}
}

// Load reads the config file at path (or the default location), falling
// back to defaults when it is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer func() { _ = file.Close() }()
		if err := decode(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL         string `toml:"server_url"`
		PollIntervalMS    int64  `toml:"poll_interval_ms"`
		RequestTimeoutMS  int64  `toml:"request_timeout_ms"`
		MaxPollDurationMS int64  `toml:"max_poll_duration_ms"`
		RetryLimit        int    `toml:"retry_limit"`
		LogFile           string `toml:"log_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if raw.PollIntervalMS != 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}
	if raw.RequestTimeoutMS != 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}
	cfg.MaxPollDuration = time.Duration(raw.MaxPollDurationMS) * time.Millisecond
	cfg.RetryLimit = raw.RetryLimit
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(envServerURL); ok && strings.TrimSpace(v) != "" {
		cfg.ServerURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envPollInterval); ok && strings.TrimSpace(v) != "" {
		ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envPollInterval, err)
		}
		cfg.PollInterval = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// Validate rejects settings the controller cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server url is empty")
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll interval %v is below minimum %v", c.PollInterval, minPollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.MaxPollDuration < 0 {
		return fmt.Errorf("max poll duration must not be negative")
	}
	if c.RetryLimit < 0 {
		return fmt.Errorf("retry limit must not be negative")
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
