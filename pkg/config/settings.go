package config

import (
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/wake/pkg/observability"
)

// Settings holds process-level knobs read from the environment. Everything
// has a usable default; embedders that configure programmatically never need
// this.
type Settings struct {
	LogLevel     string
	ProfilesDir  string
	OTLPEndpoint string
	Telemetry    bool
}

// LoadSettings reads settings from WAKE_*-prefixed environment variables.
func LoadSettings() *Settings {
	logLevel := os.Getenv("WAKE_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	profilesDir := os.Getenv("WAKE_PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	return &Settings{
		LogLevel:     logLevel,
		ProfilesDir:  profilesDir,
		OTLPEndpoint: os.Getenv("WAKE_OTLP_ENDPOINT"),
		Telemetry:    os.Getenv("WAKE_TELEMETRY") == "true",
	}
}

// SlogLevel maps the configured level name onto slog's scale. Unknown names
// fall back to Info.
func (s *Settings) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Observability builds a provider config from the settings. Telemetry stays
// off unless both the flag and an endpoint are set.
func (s *Settings) Observability() *observability.Config {
	cfg := observability.DefaultConfig()
	cfg.OTLPEndpoint = s.OTLPEndpoint
	cfg.Enabled = s.Telemetry && s.OTLPEndpoint != ""
	return cfg
}
