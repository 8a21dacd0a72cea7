package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr string `env:"COACH_ADDR" envDefault:":8000"`

	// Empty admits every browser origin.
	CORSOrigins        []string `env:"COACH_CORS_ORIGINS" envSeparator:","`
	CORSAllowedOrigins map[string]struct{}

	// Coaching websocket (/v1/coach).
	MaxMessageBytes    int64         `env:"COACH_MAX_MESSAGE_BYTES" envDefault:"4194304"`
	FeedbackCooldown   time.Duration `env:"COACH_FEEDBACK_COOLDOWN" envDefault:"5s"`
	HoldDuration       time.Duration `env:"COACH_HOLD_DURATION" envDefault:"3s"`
	MaxFrameFPS        int           `env:"COACH_MAX_FRAME_FPS" envDefault:"15"`
	FrameBurstSeconds  int           `env:"COACH_FRAME_BURST_SECONDS" envDefault:"2"`
	WSPingInterval     time.Duration `env:"COACH_WS_PING_INTERVAL" envDefault:"20s"`
	WSWriteTimeout     time.Duration `env:"COACH_WS_WRITE_TIMEOUT" envDefault:"5s"`
	WSReadTimeout      time.Duration `env:"COACH_WS_READ_TIMEOUT" envDefault:"0s"`
	MaxSessionDuration time.Duration `env:"COACH_MAX_SESSION_DURATION" envDefault:"2h"`

	// Pose sidecar.
	PerceptionBaseURL string        `env:"COACH_PERCEPTION_BASE_URL" envDefault:"http://127.0.0.1:8766"`
	PerceptionTimeout time.Duration `env:"COACH_PERCEPTION_TIMEOUT" envDefault:"10s"`

	// Speech. No API key means sessions run silently.
	CartesiaAPIKey  string `env:"COACH_CARTESIA_API_KEY"`
	CartesiaBaseURL string `env:"COACH_CARTESIA_BASE_URL" envDefault:"https://api.cartesia.ai"`
	CartesiaVoiceID string `env:"COACH_CARTESIA_VOICE_ID"`

	ReadHeaderTimeout   time.Duration `env:"COACH_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownGracePeriod time.Duration `env:"COACH_SHUTDOWN_GRACE_PERIOD" envDefault:"30s"`

	// Tracing is exported only when an endpoint is set.
	OTelEndpoint string `env:"COACH_OTEL_ENDPOINT"`

	LogLevel string `env:"COACH_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"COACH_LOG_FILE"`
}

func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.CORSAllowedOrigins = parseCSVSet(cfg.CORSOrigins)
	cfg.CartesiaAPIKey = strings.TrimSpace(cfg.CartesiaAPIKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("COACH_ADDR must be set")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("COACH_MAX_MESSAGE_BYTES must be > 0")
	}
	if c.FeedbackCooldown <= 0 {
		return fmt.Errorf("COACH_FEEDBACK_COOLDOWN must be > 0")
	}
	if c.HoldDuration <= 0 {
		return fmt.Errorf("COACH_HOLD_DURATION must be > 0")
	}
	if c.MaxFrameFPS < 0 {
		return fmt.Errorf("COACH_MAX_FRAME_FPS must be >= 0")
	}
	if c.FrameBurstSeconds < 0 {
		return fmt.Errorf("COACH_FRAME_BURST_SECONDS must be >= 0")
	}
	if c.MaxFrameFPS > 0 && c.FrameBurstSeconds < 1 {
		return fmt.Errorf("COACH_FRAME_BURST_SECONDS must be >= 1 when frame limits are enabled")
	}
	if c.WSPingInterval <= 0 {
		return fmt.Errorf("COACH_WS_PING_INTERVAL must be > 0")
	}
	if c.WSWriteTimeout <= 0 {
		return fmt.Errorf("COACH_WS_WRITE_TIMEOUT must be > 0")
	}
	if c.WSReadTimeout < 0 {
		return fmt.Errorf("COACH_WS_READ_TIMEOUT must be >= 0")
	}
	if c.MaxSessionDuration <= 0 {
		return fmt.Errorf("COACH_MAX_SESSION_DURATION must be > 0")
	}
	if err := validateBaseURL("COACH_PERCEPTION_BASE_URL", c.PerceptionBaseURL); err != nil {
		return err
	}
	if c.PerceptionTimeout <= 0 {
		return fmt.Errorf("COACH_PERCEPTION_TIMEOUT must be > 0")
	}
	if err := validateBaseURL("COACH_CARTESIA_BASE_URL", c.CartesiaBaseURL); err != nil {
		return err
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("COACH_READ_HEADER_TIMEOUT must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("COACH_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("COACH_LOG_LEVEL must be one of debug|info|warn|error")
	}
	return nil
}

// SpeechEnabled reports whether a TTS key is configured.
func (c Config) SpeechEnabled() bool {
	return c.CartesiaAPIKey != ""
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL", key)
	}
	return nil
}

func parseCSVSet(items []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = struct{}{}
	}
	return out
}
