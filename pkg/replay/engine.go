package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// TimingDrift compares a frame's recorded runtime with the runtime observed
// during replay.
type TimingDrift struct {
	OriginalRuntimeMS int64 `json:"original_runtime_ms"`
	ReplayedRuntimeMS int64 `json:"replayed_runtime_ms"`
	// DriftPercent is the signed percentage change relative to the
	// recorded runtime. A zero-runtime original with a nonzero replay
	// reports 100.
	DriftPercent float64 `json:"drift_percent"`
}

func computeDrift(originalMS, replayedMS int64) *TimingDrift {
	d := &TimingDrift{OriginalRuntimeMS: originalMS, ReplayedRuntimeMS: replayedMS}
	switch {
	case originalMS != 0:
		d.DriftPercent = float64(replayedMS-originalMS) / float64(originalMS) * 100
	case replayedMS != 0:
		d.DriftPercent = 100
	}
	return d
}

// QuotaCheckResult reports whether the replayed footprint stayed inside the
// limits the replay ran under.
type QuotaCheckResult struct {
	Passed           bool                 `json:"passed"`
	Limit            frame.QuotaFootprint `json:"limit"`
	Observed         frame.QuotaFootprint `json:"observed"`
	RelaxationFactor float64              `json:"relaxation_factor"`
}

// SideEffect is one observable side effect captured during an audit replay.
type SideEffect struct {
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Result is the outcome of replaying one frame. Success means the replay
// completed and reproduced the recorded behavior within quota; OutcomeMatch
// and QuotaCheck carry the subchecks individually. Err describes the failed
// subcheck when Success is false. Stage failures (tampering, harness errors)
// are returned as Go errors by Execute, not encoded here.
type Result struct {
	Mode         Kind             `json:"mode"`
	FrameHash    string           `json:"frame_hash"`
	Success      bool             `json:"success"`
	OutcomeMatch bool             `json:"outcome_match"`
	Drift        *TimingDrift     `json:"timing_drift,omitempty"`
	QuotaCheck   QuotaCheckResult `json:"quota_check"`
	Err          string           `json:"error,omitempty"`
}

// outcomesEqual compares outputs by canonical hash, so two error outcomes
// with distinct payloads count as different.
func outcomesEqual(a, b frame.OutputResult) (bool, error) {
	ha, err := canonical.Hash(a)
	if err != nil {
		return false, err
	}
	hb, err := canonical.Hash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func describeFailure(outcomeMatch bool, quota QuotaCheckResult) string {
	var parts []string
	if !outcomeMatch {
		parts = append(parts, "outcome diverged from recorded output")
	}
	if !quota.Passed {
		parts = append(parts, "replayed footprint exceeded limits")
	}
	return strings.Join(parts, "; ")
}

// VerifyEngine re-processes a frame without executing anything: it re-runs
// the frame's invariant checks and hash comparison, then reports the
// recorded footprint as both limit and observation. The VerifyMode tag makes
// non-execution structural: this engine holds no harness to run.
type VerifyEngine struct {
	mode   VerifyMode
	cfg    Config
	logger *slog.Logger
}

// NewVerifyEngine constructs a verification-only engine.
func NewVerifyEngine(cfg Config) *VerifyEngine {
	return &VerifyEngine{
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "replay", "mode", KindVerify),
	}
}

// Mode returns the engine's compile-time tag.
func (e *VerifyEngine) Mode() VerifyMode { return e.mode }

// Execute checks the frame's integrity and reports its recorded footprint as
// the baseline. No execution takes place and no drift is measured.
func (e *VerifyEngine) Execute(ctx context.Context, f *frame.Frame) (*Result, error) {
	if f == nil {
		return nil, errors.New("verify replay: nil frame")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verify replay: %w", err)
	}
	if err := f.VerifyIntegrity(); err != nil {
		return nil, fmt.Errorf("verify replay: integrity: %w", err)
	}

	res := &Result{
		Mode:         KindVerify,
		FrameHash:    f.ContentHash,
		Success:      true,
		OutcomeMatch: true,
		QuotaCheck: QuotaCheckResult{
			Passed:           true,
			Limit:            f.Footprint,
			Observed:         f.Footprint,
			RelaxationFactor: 1,
		},
	}
	e.logger.Debug("frame verified", "frame_hash", f.ContentHash, "session_id", f.Metadata.SessionID)
	return res, nil
}

// SimulateEngine re-executes a frame under relaxed resource quotas: the
// recorded footprint scaled by the configured relaxation factor becomes the
// limit, and the observed runtime is compared against the recording as
// timing drift. Side effects are not retained.
type SimulateEngine struct {
	mode    SimulateMode
	cfg     Config
	harness ExecutionHarness
	logger  *slog.Logger
}

// NewSimulateEngine constructs a simulation engine. A nil cfg.Harness
// selects RecordedPlayback.
func NewSimulateEngine(cfg Config) *SimulateEngine {
	cfg = cfg.withDefaults()
	return &SimulateEngine{
		cfg:     cfg,
		harness: cfg.Harness,
		logger:  slog.Default().With("component", "replay", "mode", KindSimulate),
	}
}

// Mode returns the engine's compile-time tag.
func (e *SimulateEngine) Mode() SimulateMode { return e.mode }

// Execute integrity-checks the frame, runs the harness against a
// deterministic context, and reports drift plus a relaxed-quota check.
func (e *SimulateEngine) Execute(ctx context.Context, f *frame.Frame) (*Result, error) {
	if f == nil {
		return nil, errors.New("simulate replay: nil frame")
	}
	if err := f.VerifyIntegrity(); err != nil {
		return nil, fmt.Errorf("simulate replay: integrity: %w", err)
	}

	dctx := NewDeterministicContext(f)
	outcome, err := e.harness.Execute(ctx, f, dctx, discardRecorder{})
	if err != nil {
		return nil, fmt.Errorf("simulate replay: execution: %w", err)
	}

	limit := f.Footprint.Scale(e.cfg.QuotaRelaxation)
	quota := QuotaCheckResult{
		Passed:           outcome.Footprint.Within(limit),
		Limit:            limit,
		Observed:         outcome.Footprint,
		RelaxationFactor: e.cfg.QuotaRelaxation,
	}
	match, err := outcomesEqual(f.Output, outcome.Output)
	if err != nil {
		return nil, fmt.Errorf("simulate replay: outcome comparison: %w", err)
	}

	res := &Result{
		Mode:         KindSimulate,
		FrameHash:    f.ContentHash,
		Success:      match && quota.Passed,
		OutcomeMatch: match,
		Drift:        computeDrift(f.Footprint.RuntimeMS, outcome.Footprint.RuntimeMS),
		QuotaCheck:   quota,
	}
	if !res.Success {
		res.Err = describeFailure(match, quota)
	}
	e.logger.Debug("frame simulated",
		"frame_hash", f.ContentHash,
		"session_id", f.Metadata.SessionID,
		"outcome_match", match,
		"drift_percent", res.Drift.DriftPercent,
	)
	return res, nil
}

// AuditEngine re-executes a frame while accumulating every side effect the
// harness reports, in order, retrievable after execution. Quotas are checked
// against the recorded footprint without relaxation: an audit replays what
// actually happened.
type AuditEngine struct {
	mode    AuditMode
	cfg     Config
	harness ExecutionHarness
	logger  *slog.Logger
	clock   func() time.Time

	mu      sync.RWMutex
	effects []SideEffect
}

// NewAuditEngine constructs an auditing engine. A nil cfg.Harness selects
// RecordedPlayback.
func NewAuditEngine(cfg Config) *AuditEngine {
	cfg = cfg.withDefaults()
	return &AuditEngine{
		cfg:     cfg,
		harness: cfg.Harness,
		logger:  slog.Default().With("component", "replay", "mode", KindAudit),
		clock:   time.Now,
	}
}

// WithClock overrides the side-effect timestamp source for testing.
func (e *AuditEngine) WithClock(clock func() time.Time) *AuditEngine {
	e.clock = clock
	return e
}

// Mode returns the engine's compile-time tag.
func (e *AuditEngine) Mode() AuditMode { return e.mode }

// RecordSideEffect appends one record to the engine's ordered list. Safe to
// call from the harness while Execute is running.
func (e *AuditEngine) RecordSideEffect(kind, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.effects = append(e.effects, SideEffect{
		Kind:        kind,
		Description: description,
		Timestamp:   e.clock(),
	})
}

// SideEffects returns a copy of the records accumulated so far. It may be
// called concurrently with a running Execute.
func (e *AuditEngine) SideEffects() []SideEffect {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]SideEffect, len(e.effects))
	copy(out, e.effects)
	return out
}

// Execute integrity-checks the frame, then runs the harness with this engine
// as the side-effect recorder.
func (e *AuditEngine) Execute(ctx context.Context, f *frame.Frame) (*Result, error) {
	if f == nil {
		return nil, errors.New("audit replay: nil frame")
	}
	if err := f.VerifyIntegrity(); err != nil {
		return nil, fmt.Errorf("audit replay: integrity: %w", err)
	}

	dctx := NewDeterministicContext(f)
	outcome, err := e.harness.Execute(ctx, f, dctx, e)
	if err != nil {
		return nil, fmt.Errorf("audit replay: execution: %w", err)
	}

	quota := QuotaCheckResult{
		Passed:           outcome.Footprint.Within(f.Footprint),
		Limit:            f.Footprint,
		Observed:         outcome.Footprint,
		RelaxationFactor: 1,
	}
	match, err := outcomesEqual(f.Output, outcome.Output)
	if err != nil {
		return nil, fmt.Errorf("audit replay: outcome comparison: %w", err)
	}

	res := &Result{
		Mode:         KindAudit,
		FrameHash:    f.ContentHash,
		Success:      match && quota.Passed,
		OutcomeMatch: match,
		Drift:        computeDrift(f.Footprint.RuntimeMS, outcome.Footprint.RuntimeMS),
		QuotaCheck:   quota,
	}
	if !res.Success {
		res.Err = describeFailure(match, quota)
	}
	e.logger.Debug("frame audited",
		"frame_hash", f.ContentHash,
		"session_id", f.Metadata.SessionID,
		"side_effects", len(e.SideEffects()),
	)
	return res, nil
}

// EngineSelection is the closed dispatch union the factory returns: exactly
// one field is non-nil, so callers branch on fields instead of runtime type
// inspection, and no engine outside this package can enter the set.
type EngineSelection struct {
	Verify   *VerifyEngine
	Simulate *SimulateEngine
	Audit    *AuditEngine
}

// Kind names the selected engine's mode.
func (s *EngineSelection) Kind() Kind {
	switch {
	case s.Verify != nil:
		return KindVerify
	case s.Simulate != nil:
		return KindSimulate
	case s.Audit != nil:
		return KindAudit
	default:
		return ""
	}
}

// Execute dispatches to the selected engine.
func (s *EngineSelection) Execute(ctx context.Context, f *frame.Frame) (*Result, error) {
	switch {
	case s.Verify != nil:
		return s.Verify.Execute(ctx, f)
	case s.Simulate != nil:
		return s.Simulate.Execute(ctx, f)
	case s.Audit != nil:
		return s.Audit.Execute(ctx, f)
	default:
		return nil, errors.New("replay: empty engine selection")
	}
}

// NewEngine validates the frame once, then constructs exactly one engine for
// the configured mode.
func NewEngine(f *frame.Frame, cfg Config) (*EngineSelection, error) {
	if f == nil {
		return nil, errors.New("replay factory: nil frame")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("replay factory: %w", err)
	}
	if err := f.VerifyIntegrity(); err != nil {
		return nil, fmt.Errorf("replay factory: frame %s: %w", f.Metadata.FrameID, err)
	}

	switch cfg.Mode {
	case KindVerify:
		return &EngineSelection{Verify: NewVerifyEngine(cfg)}, nil
	case KindSimulate:
		return &EngineSelection{Simulate: NewSimulateEngine(cfg)}, nil
	case KindAudit:
		return &EngineSelection{Audit: NewAuditEngine(cfg)}, nil
	default:
		return nil, fmt.Errorf("replay factory: unknown replay mode %q", string(cfg.Mode))
	}
}
