// Package replay re-processes recorded session log frames under one of three
// compile-time-distinguished modes:
//
//   - Verify: integrity checking only. A VerifyEngine cannot execute anything
//     and cannot collect side effects; the mode's type makes that structural.
//   - Simulate: conceptual re-execution under relaxed resource quotas,
//     preserving logical ordering and reporting timing drift.
//   - Audit: re-execution that accumulates every observable side effect in an
//     ordered, lock-guarded list.
//
// The mode is pinned to the engine's type rather than a runtime flag, so a
// verification pass can never accidentally execute arbitrary logic and an
// audit pass can never silently skip side-effect capture.
package replay

import "fmt"

// Mode is the sealed set of replay behavior selectors. The unexported method
// keeps the set closed to this package; the three zero-size tags below are
// the only implementations.
type Mode interface {
	// Name returns the mode's stable wire name.
	Name() string
	// CanExecute reports whether engines of this mode may run the
	// execution harness.
	CanExecute() bool
	// CanCollectSideEffects reports whether engines of this mode may
	// accumulate side-effect records.
	CanCollectSideEffects() bool

	sealedMode()
}

// VerifyMode selects integrity-check-only replay.
type VerifyMode struct{}

func (VerifyMode) Name() string                { return string(KindVerify) }
func (VerifyMode) CanExecute() bool            { return false }
func (VerifyMode) CanCollectSideEffects() bool { return false }
func (VerifyMode) sealedMode()                 {}

// SimulateMode selects re-execution under relaxed quotas.
type SimulateMode struct{}

func (SimulateMode) Name() string                { return string(KindSimulate) }
func (SimulateMode) CanExecute() bool            { return true }
func (SimulateMode) CanCollectSideEffects() bool { return true }
func (SimulateMode) sealedMode()                 {}

// AuditMode selects re-execution with full side-effect capture.
type AuditMode struct{}

func (AuditMode) Name() string                { return string(KindAudit) }
func (AuditMode) CanExecute() bool            { return true }
func (AuditMode) CanCollectSideEffects() bool { return true }
func (AuditMode) sealedMode()                 {}

var (
	_ Mode = VerifyMode{}
	_ Mode = SimulateMode{}
	_ Mode = AuditMode{}
)

// Kind names a replay mode in configuration and results, where a type tag
// cannot travel.
type Kind string

const (
	KindVerify   Kind = "VERIFY"
	KindSimulate Kind = "SIMULATE"
	KindAudit    Kind = "AUDIT"
)

// Valid reports whether k names a known mode.
func (k Kind) Valid() bool {
	switch k {
	case KindVerify, KindSimulate, KindAudit:
		return true
	}
	return false
}

// Mode resolves the kind to its type-level tag.
func (k Kind) Mode() (Mode, error) {
	switch k {
	case KindVerify:
		return VerifyMode{}, nil
	case KindSimulate:
		return SimulateMode{}, nil
	case KindAudit:
		return AuditMode{}, nil
	default:
		return nil, fmt.Errorf("unknown replay mode %q", string(k))
	}
}
