package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// MemoryStore is the in-memory SessionLogStore. One RWMutex guards all
// tables so an Append observes a consistent session tail.
type MemoryStore struct {
	mu        sync.RWMutex
	frames    []*frame.Frame            // insertion order, backs Query
	byHash    map[string]*frame.Frame   // content hash -> frame
	bySession map[string][]*frame.Frame // session id -> frames in append order

	maxSkew time.Duration
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMaxClockSkew overrides the bound on wall-clock distance between
// consecutive frames of a session. Zero disables the check.
func WithMaxClockSkew(d time.Duration) Option {
	return func(s *MemoryStore) { s.maxSkew = d }
}

// WithClock overrides the time source used for ingestion timestamps in logs.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStore) { s.clock = clock }
}

// WithLogger overrides the store's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *MemoryStore) { s.logger = logger }
}

// NewMemoryStore returns an empty store with the default clock-skew bound.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byHash:    make(map[string]*frame.Frame),
		bySession: make(map[string][]*frame.Frame),
		maxSkew:   frame.DefaultMaxClockSkew,
		clock:     time.Now,
		logger:    slog.Default().With("component", "session_log_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ SessionLogStore = (*MemoryStore)(nil)

// Append validates f standalone and against the session tail, then inserts
// it. The store is unchanged when any check fails.
func (s *MemoryStore) Append(f *frame.Frame) error {
	if f == nil {
		return fmt.Errorf("append: nil frame")
	}
	if err := f.VerifyIntegrity(); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.sessionTailLocked(f.Metadata.SessionID)
	if err := f.ValidateAgainstPrevious(prev, s.maxSkew); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	if err := checkParentLinkage(f, prev); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	if _, exists := s.byHash[f.ContentHash]; exists {
		return fmt.Errorf("append %s: %w", f.ContentHash, ErrDuplicateFrame)
	}

	s.frames = append(s.frames, f)
	s.byHash[f.ContentHash] = f
	s.bySession[f.Metadata.SessionID] = append(s.bySession[f.Metadata.SessionID], f)

	s.logger.Debug("frame appended",
		"session_id", f.Metadata.SessionID,
		"sequence_number", f.Metadata.SequenceNumber,
		"capability_id", f.CapabilityID,
		"content_hash", f.ContentHash,
		"ingested_at", s.clock().UTC(),
	)
	return nil
}

// checkParentLinkage enforces that a populated parent hash names the
// previous frame of the session. A frame may omit its parent hash even when
// a predecessor exists; it may not claim one that does not match.
func checkParentLinkage(f *frame.Frame, prev *frame.Frame) error {
	if f.Metadata.ParentFrameHash == "" {
		return nil
	}
	if prev == nil {
		return &frame.InvalidParentFrameHashError{
			Hash:   f.Metadata.ParentFrameHash,
			Reason: "session has no previous frame",
		}
	}
	if f.Metadata.ParentFrameHash != prev.ContentHash {
		return &frame.InvalidParentFrameHashError{
			Hash:   f.Metadata.ParentFrameHash,
			Reason: fmt.Sprintf("does not match previous frame hash %s", prev.ContentHash),
		}
	}
	return nil
}

// sessionTailLocked returns the session's highest-sequence frame, or nil.
// Frames append with strictly increasing sequence numbers, so the tail is
// the last element.
func (s *MemoryStore) sessionTailLocked(sessionID string) *frame.Frame {
	chain := s.bySession[sessionID]
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

// GetByHash returns the stored frame after re-verifying its integrity.
func (s *MemoryStore) GetByHash(hash string) (*frame.Frame, error) {
	s.mu.RLock()
	f, ok := s.byHash[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", hash, ErrFrameNotFound)
	}
	if err := f.VerifyIntegrity(); err != nil {
		return nil, fmt.Errorf("get %s: %w", hash, err)
	}
	return f, nil
}

// Query returns every verified frame matching pred, in insertion order.
// Frames failing re-verification are skipped.
func (s *MemoryStore) Query(pred Predicate) []*frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*frame.Frame
	for _, f := range s.frames {
		if err := f.VerifyIntegrity(); err != nil {
			s.logger.Warn("corrupt frame excluded from query",
				"content_hash", f.ContentHash,
				"session_id", f.Metadata.SessionID,
				"error", err,
			)
			continue
		}
		if pred == nil || pred(f) {
			out = append(out, f)
		}
	}
	return out
}

// SessionFrames returns the session's verified frames ordered by
// FrameOrderKey.
func (s *MemoryStore) SessionFrames(sessionID string) []*frame.Frame {
	s.mu.RLock()
	chain := s.bySession[sessionID]
	out := make([]*frame.Frame, 0, len(chain))
	for _, f := range chain {
		if err := f.VerifyIntegrity(); err != nil {
			s.logger.Warn("corrupt frame excluded from session listing",
				"content_hash", f.ContentHash,
				"session_id", sessionID,
				"error", err,
			)
			continue
		}
		out = append(out, f)
	}
	s.mu.RUnlock()

	frame.SortFrames(out)
	return out
}

// Len reports the number of stored frames.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Sessions returns the distinct session ids, sorted.
func (s *MemoryStore) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.bySession))
	for id := range s.bySession {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LatestSequence reports the session's highest appended sequence number.
func (s *MemoryStore) LatestSequence(sessionID string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tail := s.sessionTailLocked(sessionID)
	if tail == nil {
		return 0, false
	}
	return tail.Metadata.SequenceNumber, true
}
