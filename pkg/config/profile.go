// Package config loads replay profiles and process settings. Profiles are
// YAML documents shipped alongside a deployment, one per replay posture
// (verify, simulate, audit); settings come from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/wake/pkg/replay"
)

// ReplayProfile is a named, file-distributed replay configuration.
type ReplayProfile struct {
	Name              string  `yaml:"name" json:"name"`
	Code              string  `yaml:"code" json:"code"`
	Mode              string  `yaml:"mode" json:"mode"`
	TimeoutMS         int64   `yaml:"timeout_ms" json:"timeout_ms"`
	QuotaRelaxation   float64 `yaml:"quota_relaxation" json:"quota_relaxation"`
	MaxFramesPerBatch int     `yaml:"max_frames_per_batch" json:"max_frames_per_batch"`
	MaxTotalFrames    int64   `yaml:"max_total_frames" json:"max_total_frames"`
	Concurrency       int     `yaml:"concurrency" json:"concurrency"`
	RatePerSecond     float64 `yaml:"rate_per_second" json:"rate_per_second"`
}

// LoadProfile loads a replay profile by code, searching the profiles
// directory for profile_<code>.yaml. Profiles that name an unknown replay
// mode are rejected here, not at first use.
func LoadProfile(profilesDir, code string) (*ReplayProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile ReplayProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}

	if profile.Code == "" {
		profile.Code = code
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", code, err)
	}

	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml in the profiles directory,
// keyed by code.
func LoadAllProfiles(profilesDir string) (map[string]*ReplayProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*ReplayProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile ReplayProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Code == "" {
			// Extract code from filename: profile_verify.yaml -> verify
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}

		profiles[profile.Code] = &profile
	}

	return profiles, nil
}

// Validate checks the profile's mode and bounds.
func (p *ReplayProfile) Validate() error {
	if !replay.Kind(p.Mode).Valid() {
		return fmt.Errorf("unknown replay mode %q", p.Mode)
	}
	if p.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must not be negative, got %d", p.TimeoutMS)
	}
	if p.QuotaRelaxation != 0 && p.QuotaRelaxation < 1 {
		return fmt.Errorf("quota_relaxation must be >= 1, got %g", p.QuotaRelaxation)
	}
	if p.MaxFramesPerBatch < 0 {
		return fmt.Errorf("max_frames_per_batch must not be negative, got %d", p.MaxFramesPerBatch)
	}
	if p.MaxTotalFrames < 0 {
		return fmt.Errorf("max_total_frames must not be negative, got %d", p.MaxTotalFrames)
	}
	if p.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", p.Concurrency)
	}
	if p.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second must not be negative, got %g", p.RatePerSecond)
	}
	return nil
}

// ToReplayConfig converts the profile into an engine configuration.
func (p *ReplayProfile) ToReplayConfig() replay.Config {
	return replay.Config{
		Mode:            replay.Kind(p.Mode),
		TimeoutMS:       p.TimeoutMS,
		QuotaRelaxation: p.QuotaRelaxation,
	}
}

// ToBatchConfig converts the profile into batch executor bounds.
func (p *ReplayProfile) ToBatchConfig() replay.BatchConfig {
	return replay.BatchConfig{
		Replay:            p.ToReplayConfig(),
		MaxFramesPerBatch: p.MaxFramesPerBatch,
		MaxTotalFrames:    p.MaxTotalFrames,
		Concurrency:       p.Concurrency,
		RatePerSecond:     p.RatePerSecond,
	}
}
