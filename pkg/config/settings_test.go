package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Setenv("WAKE_LOG_LEVEL", "")
	t.Setenv("WAKE_PROFILES_DIR", "")
	t.Setenv("WAKE_OTLP_ENDPOINT", "")
	t.Setenv("WAKE_TELEMETRY", "")

	s := LoadSettings()
	require.Equal(t, "INFO", s.LogLevel)
	require.Equal(t, "profiles", s.ProfilesDir)
	require.Empty(t, s.OTLPEndpoint)
	require.False(t, s.Telemetry)
}

func TestLoadSettings_FromEnv(t *testing.T) {
	t.Setenv("WAKE_LOG_LEVEL", "DEBUG")
	t.Setenv("WAKE_PROFILES_DIR", "/etc/wake/profiles")
	t.Setenv("WAKE_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("WAKE_TELEMETRY", "true")

	s := LoadSettings()
	require.Equal(t, "DEBUG", s.LogLevel)
	require.Equal(t, "/etc/wake/profiles", s.ProfilesDir)
	require.Equal(t, "collector:4317", s.OTLPEndpoint)
	require.True(t, s.Telemetry)
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"verbose": slog.LevelInfo, // unknown names fall back
	}
	for name, want := range cases {
		s := &Settings{LogLevel: name}
		require.Equal(t, want, s.SlogLevel(), "level %s", name)
	}
}

func TestObservability(t *testing.T) {
	on := &Settings{Telemetry: true, OTLPEndpoint: "collector:4317"}
	cfg := on.Observability()
	require.True(t, cfg.Enabled)
	require.Equal(t, "collector:4317", cfg.OTLPEndpoint)

	// The flag alone is not enough; exporting needs a destination.
	flagOnly := &Settings{Telemetry: true}
	require.False(t, flagOnly.Observability().Enabled)

	endpointOnly := &Settings{OTLPEndpoint: "collector:4317"}
	require.False(t, endpointOnly.Observability().Enabled)
}
