package frame

import (
	"errors"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
)

// ValueChange is one changed argument's before and after values.
type ValueChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ArgsDiff is a key-level structural diff of two input-argument maps.
type ArgsDiff struct {
	Added   map[string]any         `json:"added,omitempty"`
	Removed map[string]any         `json:"removed,omitempty"`
	Changed map[string]ValueChange `json:"changed,omitempty"`
}

// Delta captures the differences between two frames: a structural diff of
// input arguments (nil when identical), whether the outcome changed, and
// signed deltas for the runtime, memory and I/O dimensions of the footprint.
type Delta struct {
	FrameAHash       string    `json:"frame_a_hash"`
	FrameBHash       string    `json:"frame_b_hash"`
	ArgsDiff         *ArgsDiff `json:"args_diff,omitempty"`
	OutcomeChanged   bool      `json:"outcome_changed"`
	RuntimeDeltaMS   int64     `json:"runtime_delta_ms"`
	MemoryDeltaBytes int64     `json:"memory_delta_bytes"`
	IODelta          int64     `json:"io_delta"`
}

// ComputeDelta diffs frame b against frame a. Outcomes are compared by
// canonical hash of the full output result, so two error outcomes with
// distinct codes, messages or details count as changed.
func ComputeDelta(a, b *Frame) (*Delta, error) {
	if a == nil || b == nil {
		return nil, errors.New("compute delta: nil frame")
	}

	argsDiff, err := diffArgs(a.InputArgs, b.InputArgs)
	if err != nil {
		return nil, err
	}

	outA, err := canonical.Hash(a.Output)
	if err != nil {
		return nil, err
	}
	outB, err := canonical.Hash(b.Output)
	if err != nil {
		return nil, err
	}

	return &Delta{
		FrameAHash:       a.ContentHash,
		FrameBHash:       b.ContentHash,
		ArgsDiff:         argsDiff,
		OutcomeChanged:   outA != outB,
		RuntimeDeltaMS:   b.Footprint.RuntimeMS - a.Footprint.RuntimeMS,
		MemoryDeltaBytes: b.Footprint.PeakMemoryBytes - a.Footprint.PeakMemoryBytes,
		IODelta:          int64(b.Footprint.IOOperations) - int64(a.Footprint.IOOperations),
	}, nil
}

// diffArgs walks both maps once each and reports added, removed and changed
// keys. Values compare by canonical hash so nested maps diff reliably.
func diffArgs(a, b map[string]any) (*ArgsDiff, error) {
	diff := &ArgsDiff{}

	for k, bv := range b {
		av, ok := a[k]
		if !ok {
			if diff.Added == nil {
				diff.Added = make(map[string]any)
			}
			diff.Added[k] = bv
			continue
		}
		same, err := canonicalEqual(av, bv)
		if err != nil {
			return nil, err
		}
		if !same {
			if diff.Changed == nil {
				diff.Changed = make(map[string]ValueChange)
			}
			diff.Changed[k] = ValueChange{From: av, To: bv}
		}
	}

	for k, av := range a {
		if _, ok := b[k]; !ok {
			if diff.Removed == nil {
				diff.Removed = make(map[string]any)
			}
			diff.Removed[k] = av
		}
	}

	if diff.Added == nil && diff.Removed == nil && diff.Changed == nil {
		return nil, nil
	}
	return diff, nil
}

func canonicalEqual(a, b any) (bool, error) {
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
