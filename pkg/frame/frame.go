// Package frame defines the session log frame: one immutable,
// content-addressed record of a single capability invocation, together with
// the invariant checks and canonical hashing that make it tamper-evident.
//
// A frame is created exactly once through New, which validates standalone
// invariants before computing the content hash. Cross-frame invariants
// (sequence monotonicity, clock regression, skew) are checked by
// ValidateAgainstPrevious, which the store invokes on append because only the
// store knows the session's latest frame.
package frame

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
)

// SchemaVersion is the current frame schema. Frames carrying any other
// version are rejected at construction.
const SchemaVersion = "1.0.0"

// DefaultCapabilityVersion is assumed when a producer does not record the
// capability's version.
const DefaultCapabilityVersion = "1.0.0"

// DefaultMaxClockSkew bounds the forward wall-clock jump allowed between
// consecutive frames of one session.
const DefaultMaxClockSkew = 5 * time.Minute

var currentSchema = semver.MustParse(SchemaVersion)

// FrameMetadata carries a frame's position and annotations. SequenceNumber
// and ParentFrameHash describe where a frame sits in its session, not what it
// did, and are therefore excluded from the content hash.
type FrameMetadata struct {
	FrameID         string   `json:"frame_id"`
	SessionID       string   `json:"session_id"`
	AgentID         string   `json:"agent_id"`
	SequenceNumber  uint64   `json:"sequence_number"`
	ParentFrameHash string   `json:"parent_frame_hash,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Frame is one canonical, content-addressed record of a capability
// invocation. Construct through New; never mutate after construction. A
// frame is retired only by removal from its store.
type Frame struct {
	SchemaVersion     string             `json:"schema_version"`
	NounID            string             `json:"noun_id"`
	VerbID            string             `json:"verb_id"`
	CapabilityID      string             `json:"capability_id"`
	CapabilityVersion string             `json:"capability_version"`
	Context           *InvocationContext `json:"invocation_context"`
	AttestationHash   string             `json:"attestation_hash,omitempty"`
	QuotaTier         QuotaTier          `json:"quota_tier"`
	Footprint         QuotaFootprint     `json:"quota_footprint"`
	InputArgs         map[string]any     `json:"input_args"`
	EnvVars           map[string]string  `json:"env_vars"`
	Clock             LogicalClock       `json:"logical_clock"`
	Output            OutputResult       `json:"output_result"`
	ExitClass         ExitCodeClass      `json:"exit_code_class"`
	TelemetryProfile  json.RawMessage    `json:"telemetry_profile,omitempty"`
	ContentHash       string             `json:"content_hash"`
	Metadata          FrameMetadata      `json:"metadata"`
}

// Params collects every input to frame construction. FrameID defaults to a
// generated UUID, SchemaVersion to the current schema, CapabilityVersion to
// DefaultCapabilityVersion, and ExitClass to the class implied by Output.
type Params struct {
	SchemaVersion     string
	FrameID           string
	SessionID         string
	AgentID           string
	SequenceNumber    uint64
	ParentFrameHash   string
	Tags              []string
	NounID            string
	VerbID            string
	CapabilityID      string
	CapabilityVersion string
	Context           *InvocationContext
	AttestationHash   string
	QuotaTier         QuotaTier
	Footprint         QuotaFootprint
	InputArgs         map[string]any
	EnvVars           map[string]string
	Clock             LogicalClock
	Output            OutputResult
	ExitClass         ExitCodeClass
	TelemetryProfile  json.RawMessage

	// ArgsSchema optionally validates InputArgs before hashing. Compile with
	// CompileArgsSchema.
	ArgsSchema ArgsSchema
}

// New assembles a frame with an empty hash, validates the standalone
// invariants (failing fast on the first violation), then computes the
// canonical content hash. On any violation no frame escapes.
func New(p Params) (*Frame, error) {
	f := &Frame{
		SchemaVersion:     p.SchemaVersion,
		NounID:            p.NounID,
		VerbID:            p.VerbID,
		CapabilityID:      p.CapabilityID,
		CapabilityVersion: p.CapabilityVersion,
		Context:           p.Context,
		AttestationHash:   p.AttestationHash,
		QuotaTier:         p.QuotaTier,
		Footprint:         p.Footprint,
		Clock:             p.Clock,
		Output:            p.Output,
		ExitClass:         p.ExitClass,
		Metadata: FrameMetadata{
			FrameID:         p.FrameID,
			SessionID:       p.SessionID,
			AgentID:         p.AgentID,
			SequenceNumber:  p.SequenceNumber,
			ParentFrameHash: p.ParentFrameHash,
		},
	}

	if f.SchemaVersion == "" {
		f.SchemaVersion = SchemaVersion
	}
	if f.Metadata.FrameID == "" {
		f.Metadata.FrameID = uuid.NewString()
	}
	if f.CapabilityVersion == "" {
		f.CapabilityVersion = DefaultCapabilityVersion
	}
	if f.QuotaTier == "" {
		f.QuotaTier = TierStandard
	}
	if f.ExitClass == "" {
		f.ExitClass = f.Output.DefaultExitClass()
	}

	if p.InputArgs != nil {
		f.InputArgs = make(map[string]any, len(p.InputArgs))
		for k, v := range p.InputArgs {
			f.InputArgs[k] = v
		}
	}
	if p.Tags != nil {
		f.Metadata.Tags = append([]string(nil), p.Tags...)
	}

	env, err := canonical.NormalizeEnv(p.EnvVars)
	if err != nil {
		return nil, err
	}
	f.EnvVars = env

	if len(p.TelemetryProfile) > 0 {
		raw, err := canonical.Raw(p.TelemetryProfile)
		if err != nil {
			return nil, fmt.Errorf("telemetry profile: %w", err)
		}
		f.TelemetryProfile = raw
	}

	if p.ArgsSchema != nil {
		if err := validateArgs(p.ArgsSchema, f.InputArgs); err != nil {
			return nil, err
		}
	}

	if err := f.validateInvariants(); err != nil {
		return nil, err
	}

	hash, err := f.ComputeContentHash()
	if err != nil {
		return nil, fmt.Errorf("compute content hash: %w", err)
	}
	f.ContentHash = hash

	return f, nil
}

// validateInvariants checks the standalone invariants in a fixed order and
// returns the first violation.
func (f *Frame) validateInvariants() error {
	found, err := semver.NewVersion(f.SchemaVersion)
	if err != nil || !found.Equal(currentSchema) {
		return &InvalidSchemaVersionError{Found: f.SchemaVersion, Expected: SchemaVersion}
	}
	if f.Metadata.SessionID == "" {
		return ErrEmptySessionID
	}
	if f.NounID == "" {
		return ErrEmptyNounID
	}
	if f.VerbID == "" {
		return ErrEmptyVerbID
	}
	if f.CapabilityID == "" {
		return ErrEmptyCapabilityID
	}
	if f.Context == nil {
		return ErrMissingInvocationContext
	}
	if _, err := semver.NewVersion(f.CapabilityVersion); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCapabilityVersion, f.CapabilityVersion)
	}
	if f.Output.Success != nil && f.Output.Error != nil {
		return ErrAmbiguousOutput
	}
	if f.Metadata.ParentFrameHash != "" && !canonical.ValidHash(f.Metadata.ParentFrameHash) {
		return &InvalidParentFrameHashError{
			Hash:   f.Metadata.ParentFrameHash,
			Reason: "not a hex sha-256 digest",
		}
	}
	return nil
}

// hashableFrame is the explicit, fixed field set covered by the content hash.
// SequenceNumber and ParentFrameHash are deliberately absent: a frame's
// identity depends only on its executable semantics, not its position in a
// session. The field order here is documentation; the canonical encoding
// sorts keys itself.
type hashableFrame struct {
	SchemaVersion     string            `json:"schema_version"`
	FrameID           string            `json:"frame_id"`
	SessionID         string            `json:"session_id"`
	AgentID           string            `json:"agent_id"`
	NounID            string            `json:"noun_id"`
	VerbID            string            `json:"verb_id"`
	CapabilityID      string            `json:"capability_id"`
	CapabilityVersion string            `json:"capability_version"`
	ContextDigest     string            `json:"invocation_context"`
	AttestationHash   string            `json:"attestation_hash"`
	QuotaTier         string            `json:"quota_tier"`
	Footprint         QuotaFootprint    `json:"quota_footprint"`
	InputArgs         map[string]any    `json:"input_args"`
	EnvVars           map[string]string `json:"env_vars"`
	Clock             LogicalClock      `json:"logical_clock"`
	Output            OutputResult      `json:"output_result"`
	ExitClass         string            `json:"exit_code_class"`
	TelemetryDigest   string            `json:"telemetry_profile"`
	Tags              []string          `json:"tags"`
}

// ComputeContentHash returns the canonical SHA-256 over the frame's fixed
// hashable field set. It does not touch the stored ContentHash.
func (f *Frame) ComputeContentHash() (string, error) {
	view := hashableFrame{
		SchemaVersion:     f.SchemaVersion,
		FrameID:           f.Metadata.FrameID,
		SessionID:         f.Metadata.SessionID,
		AgentID:           f.Metadata.AgentID,
		NounID:            f.NounID,
		VerbID:            f.VerbID,
		CapabilityID:      f.CapabilityID,
		CapabilityVersion: f.CapabilityVersion,
		AttestationHash:   f.AttestationHash,
		QuotaTier:         string(f.QuotaTier),
		Footprint:         f.Footprint,
		InputArgs:         f.InputArgs,
		EnvVars:           f.EnvVars,
		Clock:             f.Clock,
		Output:            f.Output,
		ExitClass:         string(f.ExitClass),
		Tags:              f.Metadata.Tags,
	}
	if f.Context != nil {
		digest, err := f.Context.Digest()
		if err != nil {
			return "", fmt.Errorf("context digest: %w", err)
		}
		view.ContextDigest = digest
	}
	if len(f.TelemetryProfile) > 0 {
		view.TelemetryDigest = canonical.HashBytes(f.TelemetryProfile)
	}
	return canonical.Hash(view)
}

// VerifyIntegrity re-runs the standalone invariant checks, recomputes the
// content hash, and compares it to the stored hash. It never mutates the
// frame, so repeated calls are idempotent.
func (f *Frame) VerifyIntegrity() error {
	if err := f.validateInvariants(); err != nil {
		return err
	}
	recomputed, err := f.ComputeContentHash()
	if err != nil {
		return fmt.Errorf("recompute content hash: %w", err)
	}
	if f.ContentHash != recomputed {
		return &TamperedContentHashError{Expected: f.ContentHash, Found: recomputed}
	}
	return nil
}

// ValidateAgainstPrevious checks the cross-frame invariants between f and the
// session's current latest frame: same session, strictly increasing sequence
// number, non-decreasing wall clock, and bounded forward skew. A nil prev
// passes (first frame of a session); maxSkew <= 0 disables the skew bound.
func (f *Frame) ValidateAgainstPrevious(prev *Frame, maxSkew time.Duration) error {
	if prev == nil {
		return nil
	}
	if prev.Metadata.SessionID != f.Metadata.SessionID {
		return &SessionMismatchError{
			Previous: prev.Metadata.SessionID,
			Current:  f.Metadata.SessionID,
		}
	}
	if f.Metadata.SequenceNumber <= prev.Metadata.SequenceNumber {
		return &NonMonotonicFrameIndexError{
			Previous: prev.Metadata.SequenceNumber,
			Current:  f.Metadata.SequenceNumber,
		}
	}
	if f.Clock.WallClockNS < prev.Clock.WallClockNS {
		return &ClockRegressionError{
			PreviousNS: prev.Clock.WallClockNS,
			CurrentNS:  f.Clock.WallClockNS,
		}
	}
	if maxSkew > 0 {
		skew := f.Clock.WallClockNS - prev.Clock.WallClockNS
		if skew > maxSkew.Nanoseconds() {
			return &ExcessiveClockSkewError{
				SkewNS:       skew,
				MaxAllowedNS: maxSkew.Nanoseconds(),
			}
		}
	}
	return nil
}
