package frame

import (
	"errors"
	"fmt"
)

// Deterministic error codes for frame invariant violations.
const (
	ErrCodeSchemaVersion     = "ERR_SCHEMA_VERSION"
	ErrCodeNonMonotonicIndex = "ERR_NON_MONOTONIC_INDEX"
	ErrCodeClockRegression   = "ERR_CLOCK_REGRESSION"
	ErrCodeClockSkew         = "ERR_CLOCK_SKEW"
	ErrCodeTamperedHash      = "ERR_TAMPERED_HASH"
	ErrCodeParentHash        = "ERR_PARENT_HASH"
	ErrCodeSessionMismatch   = "ERR_SESSION_MISMATCH"
)

// Sentinel construction errors for missing or malformed required fields.
var (
	ErrEmptySessionID           = errors.New("session id is empty")
	ErrEmptyNounID              = errors.New("noun id is empty")
	ErrEmptyVerbID              = errors.New("verb id is empty")
	ErrEmptyCapabilityID        = errors.New("capability id is empty")
	ErrMissingInvocationContext = errors.New("invocation context is missing")
	ErrInvalidCapabilityVersion = errors.New("capability version is not valid semver")
	ErrAmbiguousOutput          = errors.New("output result carries both success and error")
)

// InvalidSchemaVersionError reports a frame whose schema version does not
// match the current schema.
type InvalidSchemaVersionError struct {
	Found    string `json:"found"`
	Expected string `json:"expected"`
}

func (e *InvalidSchemaVersionError) Error() string {
	return fmt.Sprintf("%s: schema version mismatch: found %q, expected %q", ErrCodeSchemaVersion, e.Found, e.Expected)
}

// NonMonotonicFrameIndexError reports a sequence number that does not
// strictly increase within its session.
type NonMonotonicFrameIndexError struct {
	Previous uint64 `json:"previous"`
	Current  uint64 `json:"current"`
}

func (e *NonMonotonicFrameIndexError) Error() string {
	return fmt.Sprintf("%s: sequence number must strictly increase: previous=%d, current=%d", ErrCodeNonMonotonicIndex, e.Previous, e.Current)
}

// ClockRegressionError reports a wall clock that moved backwards between
// consecutive frames of a session.
type ClockRegressionError struct {
	PreviousNS int64 `json:"previous_ns"`
	CurrentNS  int64 `json:"current_ns"`
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("%s: wall clock regressed: previous_ns=%d, current_ns=%d", ErrCodeClockRegression, e.PreviousNS, e.CurrentNS)
}

// ExcessiveClockSkewError reports a forward wall-clock jump between
// consecutive frames that exceeds the configured bound.
type ExcessiveClockSkewError struct {
	SkewNS       int64 `json:"skew_ns"`
	MaxAllowedNS int64 `json:"max_allowed_ns"`
}

func (e *ExcessiveClockSkewError) Error() string {
	return fmt.Sprintf("%s: clock skew of %dns exceeds allowed %dns", ErrCodeClockSkew, e.SkewNS, e.MaxAllowedNS)
}

// TamperedContentHashError reports a frame whose stored content hash no
// longer matches the hash recomputed from its content. Expected is the hash
// the frame claims; Found is what its content actually hashes to.
type TamperedContentHashError struct {
	Expected string `json:"expected"`
	Found    string `json:"found"`
}

func (e *TamperedContentHashError) Error() string {
	return fmt.Sprintf("%s: content hash mismatch: expected %s, found %s", ErrCodeTamperedHash, e.Expected, e.Found)
}

// InvalidParentFrameHashError reports a parent frame hash that is malformed
// or does not link to the session's latest frame.
type InvalidParentFrameHashError struct {
	Hash   string `json:"hash"`
	Reason string `json:"reason"`
}

func (e *InvalidParentFrameHashError) Error() string {
	return fmt.Sprintf("%s: invalid parent frame hash %q: %s", ErrCodeParentHash, e.Hash, e.Reason)
}

// SessionMismatchError reports an attempt to order frames from different
// sessions against each other.
type SessionMismatchError struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

func (e *SessionMismatchError) Error() string {
	return fmt.Sprintf("%s: frames belong to different sessions: previous=%q, current=%q", ErrCodeSessionMismatch, e.Previous, e.Current)
}

// IsTamperedContentHash checks if an error is a TamperedContentHashError.
func IsTamperedContentHash(err error) bool {
	var target *TamperedContentHashError
	return errors.As(err, &target)
}

// IsNonMonotonicFrameIndex checks if an error is a NonMonotonicFrameIndexError.
func IsNonMonotonicFrameIndex(err error) bool {
	var target *NonMonotonicFrameIndexError
	return errors.As(err, &target)
}

// IsClockRegression checks if an error is a ClockRegressionError.
func IsClockRegression(err error) bool {
	var target *ClockRegressionError
	return errors.As(err, &target)
}

// IsExcessiveClockSkew checks if an error is an ExcessiveClockSkewError.
func IsExcessiveClockSkew(err error) bool {
	var target *ExcessiveClockSkewError
	return errors.As(err, &target)
}
