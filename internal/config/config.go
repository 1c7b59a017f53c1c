package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds configurable parameters.
type Config struct {
	Hotkey             string  `json:"HOTKEY"`
	PasteWindowSeconds float64 `json:"PASTE_WINDOW_SECONDS"`
	ToggleMode         bool    `json:"TOGGLE_MODE"`

	Channels          int  `json:"CHANNELS"`
	SamplingRate      int  `json:"SAMPLING_RATE"`
	FrameDurationMS   int  `json:"FRAME_DURATION_MS"`
	VADAutoStop       bool `json:"VAD_AUTO_STOP"`
	VADAggressiveness int  `json:"VAD_AGGRESSIVENESS"`
	TrailingSilenceMS int  `json:"TRAILING_SILENCE_MS"`

	APIEndpoint    string  `json:"API_ENDPOINT"`
	Token          string  `json:"TOKEN"`
	Model          string  `json:"MODEL"`
	Language       string  `json:"LANGUAGE"`
	Prompt         string  `json:"PROMPT"`
	TextPath       string  `json:"TEXT_PATH"`
	RequestTimeout int     `json:"REQUEST_TIMEOUT"`
	MaxRetry       int     `json:"MAX_RETRY"`
	RetryBaseDelay float64 `json:"RETRY_BASE_DELAY"`
	EnableHTTP2    bool    `json:"ENABLE_HTTP2"`
	VerifySSL      bool    `json:"VERIFY_SSL"`

	CacheDir     string `json:"CACHE_DIR"`
	KeepCache    bool   `json:"KEEP_CACHE"`
	Notification bool   `json:"NOTIFICATION"`
	LogLevel     string `json:"LOG_LEVEL"`
	LogFormat    string `json:"LOG_FORMAT"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Hotkey:             "CTRL+SHIFT+;",
		PasteWindowSeconds: 2.0,
		ToggleMode:         false,
		Channels:           1,
		SamplingRate:       16000,
		FrameDurationMS:    30,
		VADAutoStop:        true,
		VADAggressiveness:  2,
		TrailingSilenceMS:  900,
		APIEndpoint:        "",
		Token:              "",
		Model:              "",
		Language:           "",
		Prompt:             "",
		TextPath:           "text",
		RequestTimeout:     30,
		MaxRetry:           3,
		RetryBaseDelay:     0.5,
		EnableHTTP2:        true,
		VerifySSL:          true,
		CacheDir:           "",
		KeepCache:          false,
		Notification:       false,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Load loads config from JSON file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

var allowedSamplingRates = map[int]bool{8000: true, 16000: true, 32000: true, 48000: true}
var allowedFrameDurations = map[int]bool{10: true, 20: true, 30: true}
var allowedLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var allowedLogFormats = map[string]bool{"json": true, "console": true}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Hotkey) == "" {
		return fmt.Errorf("invalid HOTKEY: must not be empty")
	}
	if cfg.PasteWindowSeconds < 0 || cfg.PasteWindowSeconds > 5 {
		return fmt.Errorf("invalid PASTE_WINDOW_SECONDS: %v (allowed 0.0..5.0)", cfg.PasteWindowSeconds)
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..8)", cfg.Channels)
	}
	if !allowedSamplingRates[cfg.SamplingRate] {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (allowed: 8000, 16000, 32000, 48000)", cfg.SamplingRate)
	}
	if !allowedFrameDurations[cfg.FrameDurationMS] {
		return fmt.Errorf("invalid FRAME_DURATION_MS: %d (allowed: 10, 20, 30)", cfg.FrameDurationMS)
	}
	if cfg.VADAggressiveness < 0 || cfg.VADAggressiveness > 3 {
		return fmt.Errorf("invalid VAD_AGGRESSIVENESS: %d (allowed 0..3)", cfg.VADAggressiveness)
	}
	if cfg.TrailingSilenceMS <= 0 {
		return fmt.Errorf("invalid TRAILING_SILENCE_MS: %d (must be > 0)", cfg.TrailingSilenceMS)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 0 {
		return fmt.Errorf("invalid MAX_RETRY: %d (must be >= 0)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid RETRY_BASE_DELAY: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	if !allowedLogLevels[strings.ToLower(cfg.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (allowed: debug, info, warn, error)", cfg.LogLevel)
	}
	if !allowedLogFormats[strings.ToLower(cfg.LogFormat)] {
		return fmt.Errorf("invalid LOG_FORMAT: %s (allowed: json, console)", cfg.LogFormat)
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure.
func InitCacheDir(cfg *Config) error {
	if cfg.CacheDir == "" {
		return nil
	}
	requested := cfg.CacheDir
	abs, err := filepath.Abs(requested)
	if err != nil {
		cfg.CacheDir = ""
		return fmt.Errorf("cache-dir path invalid %q: %w", requested, err)
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			cfg.CacheDir = ""
			return fmt.Errorf("cache-dir %q exists but is not a directory", abs)
		}
		cfg.CacheDir = abs
		return nil
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(abs, 0755); err != nil {
			cfg.CacheDir = ""
			return fmt.Errorf("cannot create cache-dir %q: %w", abs, err)
		}
		cfg.CacheDir = abs
		return nil
	}
	cfg.CacheDir = ""
	return fmt.Errorf("cannot access cache-dir %q: %w", abs, err)
}

// TempDir returns the directory to use for temporary files.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	cwd, _ := os.Getwd()
	return cwd
}
