package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking, so only flags
// the user actually passed override file values.
type FlagValues struct {
	Hotkey                string
	HotkeySet             bool
	PasteWindowSeconds    float64
	PasteWindowSecondsSet bool
	ToggleMode            bool
	ToggleModeSet         bool

	Channels             int
	ChannelsSet          bool
	SamplingRate         int
	SamplingRateSet      bool
	FrameDurationMS      int
	FrameDurationMSSet   bool
	VADAutoStop          bool
	VADAutoStopSet       bool
	VADAggressiveness    int
	VADAggressivenessSet bool
	TrailingSilenceMS    int
	TrailingSilenceMSSet bool

	APIEndpoint       string
	APIEndpointSet    bool
	Token             string
	TokenSet          bool
	Model             string
	ModelSet          bool
	Language          string
	LanguageSet       bool
	Prompt            string
	PromptSet         bool
	TextPath          string
	TextPathSet       bool
	RequestTimeout    int
	RequestTimeoutSet bool
	MaxRetry          int
	MaxRetrySet       bool
	RetryBaseDelay    float64
	RetryBaseDelaySet bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool

	CacheDir        string
	CacheDirSet     bool
	KeepCache       bool
	KeepCacheSet    bool
	Notification    bool
	NotificationSet bool
	LogLevel        string
	LogLevelSet     bool
	LogFormat       string
	LogFormatSet    bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	*s.target = v
	*s.set = true
	return nil
}

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*i.target = n
	*i.set = true
	return nil
}

type floatFlag struct {
	target *float64
	set    *bool
}

func (f *floatFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *f.target)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*f.target = n
	*f.set = true
	return nil
}

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	*b.target = n
	*b.set = true
	return nil
}

// BindFlags registers all flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.Hotkey, &fv.HotkeySet}, "hotkey", "push-to-talk hotkey chord (e.g. CTRL+SHIFT+;)")
	fs.Var(&floatFlag{&fv.PasteWindowSeconds, &fv.PasteWindowSecondsSet}, "paste-window", "replay window after release, seconds (0.0..5.0)")
	fs.Var(&boolFlag{&fv.ToggleMode, &fv.ToggleModeSet}, "toggle-mode", "press to toggle instead of hold to record (true/false)")

	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "capture channels (int)")
	fs.Var(&intFlag{&fv.SamplingRate, &fv.SamplingRateSet}, "sampling-rate", "sampling rate (Hz)")
	fs.Var(&intFlag{&fv.FrameDurationMS, &fv.FrameDurationMSSet}, "frame-duration", "VAD frame duration ms (10/20/30)")
	fs.Var(&boolFlag{&fv.VADAutoStop, &fv.VADAutoStopSet}, "vad-auto-stop", "stop recording after trailing silence (true/false)")
	fs.Var(&intFlag{&fv.VADAggressiveness, &fv.VADAggressivenessSet}, "vad-aggressiveness", "VAD aggressiveness (0..3)")
	fs.Var(&intFlag{&fv.TrailingSilenceMS, &fv.TrailingSilenceMSSet}, "trailing-silence", "trailing silence before auto-stop, ms")

	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "transcription API endpoint URL")
	fs.Var(&stringFlag{&fv.Token, &fv.TokenSet}, "token", "authorization token")
	fs.Var(&stringFlag{&fv.Model, &fv.ModelSet}, "model", "model")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "language")
	fs.Var(&stringFlag{&fv.Prompt, &fv.PromptSet}, "prompt", "prompt")
	fs.Var(&stringFlag{&fv.TextPath, &fv.TextPathSet}, "text-path", "JSON path to extract text from the response")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	fs.Var(&intFlag{&fv.MaxRetry, &fv.MaxRetrySet}, "max-retry", "max retry attempts")
	fs.Var(&floatFlag{&fv.RetryBaseDelay, &fv.RetryBaseDelaySet}, "retry-base-delay", "retry base delay seconds (float)")
	fs.Var(&boolFlag{&fv.EnableHTTP2, &fv.EnableHTTP2Set}, "enable-http2", "enable HTTP/2 (true/false)")
	fs.Var(&boolFlag{&fv.VerifySSL, &fv.VerifySSLSet}, "verify-ssl", "verify TLS certificates (true/false)")

	fs.Var(&stringFlag{&fv.CacheDir, &fv.CacheDirSet}, "cache-dir", "cache directory")
	fs.Var(&boolFlag{&fv.KeepCache, &fv.KeepCacheSet}, "keep-cache", "keep temporary WAV files (true/false)")
	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable notifications (true/false)")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "log level (debug/info/warn/error)")
	fs.Var(&stringFlag{&fv.LogFormat, &fv.LogFormatSet}, "log-format", "log format (json/console)")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.HotkeySet {
		cfg.Hotkey = fv.Hotkey
	}
	if fv.PasteWindowSecondsSet {
		cfg.PasteWindowSeconds = fv.PasteWindowSeconds
	}
	if fv.ToggleModeSet {
		cfg.ToggleMode = fv.ToggleMode
	}

	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.SamplingRateSet {
		cfg.SamplingRate = fv.SamplingRate
	}
	if fv.FrameDurationMSSet {
		cfg.FrameDurationMS = fv.FrameDurationMS
	}
	if fv.VADAutoStopSet {
		cfg.VADAutoStop = fv.VADAutoStop
	}
	if fv.VADAggressivenessSet {
		cfg.VADAggressiveness = fv.VADAggressiveness
	}
	if fv.TrailingSilenceMSSet {
		cfg.TrailingSilenceMS = fv.TrailingSilenceMS
	}

	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.TokenSet {
		cfg.Token = fv.Token
	}
	if fv.ModelSet {
		cfg.Model = fv.Model
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}
	if fv.PromptSet {
		cfg.Prompt = fv.Prompt
	}
	if fv.TextPathSet {
		cfg.TextPath = fv.TextPath
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.MaxRetrySet {
		cfg.MaxRetry = fv.MaxRetry
	}
	if fv.RetryBaseDelaySet {
		cfg.RetryBaseDelay = fv.RetryBaseDelay
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}

	if fv.CacheDirSet {
		cfg.CacheDir = fv.CacheDir
	}
	if fv.KeepCacheSet {
		cfg.KeepCache = fv.KeepCache
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
	if fv.LogFormatSet {
		cfg.LogFormat = fv.LogFormat
	}
}
