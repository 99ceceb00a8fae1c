// Package store provides the append-only session log store: an in-memory,
// content-hash-keyed frame table that enforces cross-frame invariants on
// write and re-verifies integrity on read.
package store

import (
	"errors"

	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// Store errors.
var (
	// ErrFrameNotFound is returned by GetByHash when no frame carries the
	// requested content hash.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrDuplicateFrame is returned by Append when a frame with the same
	// content hash is already stored.
	ErrDuplicateFrame = errors.New("frame already stored")
)

// Predicate selects frames during bulk queries.
type Predicate func(*frame.Frame) bool

// SessionLogStore is the append-only frame table contract. Append is the
// only mutator and is all-or-nothing; every read re-verifies integrity.
// A durable implementation must honor the identical validate-then-insert and
// verify-then-return semantics.
type SessionLogStore interface {
	// Append verifies the frame standalone, validates it against the
	// session's highest-sequence frame, then inserts it keyed by content
	// hash. Any violation leaves the store unchanged.
	Append(f *frame.Frame) error

	// GetByHash returns the frame after re-verifying its integrity. A
	// missing hash yields ErrFrameNotFound; a corrupt frame yields the
	// integrity error itself.
	GetByHash(hash string) (*frame.Frame, error)

	// Query returns all frames satisfying pred and integrity
	// re-verification. Corrupt frames are silently excluded so one bad
	// frame cannot fail an entire analytical scan.
	Query(pred Predicate) []*frame.Frame

	// SessionFrames returns the session's verified frames sorted by
	// FrameOrderKey.
	SessionFrames(sessionID string) []*frame.Frame

	// ComputeCompression aggregates invocation and resource statistics over
	// a sequence-number window of one session.
	ComputeCompression(sessionID string, startSeq, endSeq uint64) (*SessionCompression, error)

	// Len reports the number of stored frames.
	Len() int

	// Sessions returns the distinct session ids, sorted.
	Sessions() []string

	// LatestSequence reports the highest sequence number appended for the
	// session, and whether the session holds any frames.
	LatestSequence(sessionID string) (uint64, bool)
}

// Filter is a declarative frame selector for callers that do not need a
// custom predicate. Zero-valued fields match everything.
type Filter struct {
	SessionID    string
	AgentID      string
	NounID       string
	VerbID       string
	CapabilityID string
	QuotaTier    frame.QuotaTier
	ExitClass    frame.ExitCodeClass
	Tag          string
	SinceSeq     uint64
	ErrorsOnly   bool
}

// Predicate converts the filter into a Query predicate.
func (f Filter) Predicate() Predicate {
	return func(fr *frame.Frame) bool { return f.matches(fr) }
}

func (f Filter) matches(fr *frame.Frame) bool {
	if f.SessionID != "" && fr.Metadata.SessionID != f.SessionID {
		return false
	}
	if f.AgentID != "" && fr.Metadata.AgentID != f.AgentID {
		return false
	}
	if f.NounID != "" && fr.NounID != f.NounID {
		return false
	}
	if f.VerbID != "" && fr.VerbID != f.VerbID {
		return false
	}
	if f.CapabilityID != "" && fr.CapabilityID != f.CapabilityID {
		return false
	}
	if f.QuotaTier != "" && fr.QuotaTier != f.QuotaTier {
		return false
	}
	if f.ExitClass != "" && fr.ExitClass != f.ExitClass {
		return false
	}
	if f.Tag != "" && !hasTag(fr.Metadata.Tags, f.Tag) {
		return false
	}
	if f.SinceSeq > 0 && fr.Metadata.SequenceNumber < f.SinceSeq {
		return false
	}
	if f.ErrorsOnly && !fr.Output.IsError() {
		return false
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
