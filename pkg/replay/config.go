package replay

import "fmt"

// Defaults for replay configuration.
const (
	// DefaultTimeoutMS is the advisory per-frame execution timeout. This
	// layer does not enforce it; enforcement belongs to the execution
	// harness.
	DefaultTimeoutMS int64 = 30_000

	// DefaultQuotaRelaxation is the factor Simulate applies to the
	// recorded footprint when deriving relaxed limits.
	DefaultQuotaRelaxation = 1.5
)

// Config selects the replay mode and its knobs. The zero value is not
// usable; start from DefaultConfig or a loaded profile.
type Config struct {
	// Mode names which engine the factory constructs.
	Mode Kind `json:"mode" yaml:"mode"`

	// TimeoutMS is advisory at this layer and is passed through to the
	// execution harness.
	TimeoutMS int64 `json:"timeout_ms" yaml:"timeout_ms"`

	// QuotaRelaxation scales the recorded footprint into the limits a
	// Simulate replay runs under. Must be >= 1: simulation relaxes
	// quotas, never tightens them.
	QuotaRelaxation float64 `json:"quota_relaxation" yaml:"quota_relaxation"`

	// Harness substitutes the execution model for Simulate and Audit
	// engines. Nil selects RecordedPlayback. Never serialized: harnesses
	// are code, not configuration.
	Harness ExecutionHarness `json:"-" yaml:"-"`
}

// DefaultConfig returns a Verify-mode configuration with default bounds.
func DefaultConfig() Config {
	return Config{
		Mode:            KindVerify,
		TimeoutMS:       DefaultTimeoutMS,
		QuotaRelaxation: DefaultQuotaRelaxation,
	}
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("unknown replay mode %q", string(c.Mode))
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must not be negative, got %d", c.TimeoutMS)
	}
	if c.QuotaRelaxation != 0 && c.QuotaRelaxation < 1 {
		return fmt.Errorf("quota_relaxation must be >= 1, got %g", c.QuotaRelaxation)
	}
	return nil
}

// withDefaults fills unset knobs.
func (c Config) withDefaults() Config {
	if c.TimeoutMS == 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.QuotaRelaxation == 0 {
		c.QuotaRelaxation = DefaultQuotaRelaxation
	}
	if c.Harness == nil {
		c.Harness = RecordedPlayback{}
	}
	return c
}
