package replay

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// SideEffectRecorder receives side-effect records during a replayed
// execution. AuditEngine implements it with an accumulating list; modes that
// do not retain side effects pass a discarding recorder.
type SideEffectRecorder interface {
	RecordSideEffect(kind, description string)
}

// discardRecorder drops every record.
type discardRecorder struct{}

func (discardRecorder) RecordSideEffect(string, string) {}

// HarnessOutcome is what an execution harness reports for one replayed
// frame: the output it produced and the resources it consumed.
type HarnessOutcome struct {
	Output    frame.OutputResult   `json:"output"`
	Footprint frame.QuotaFootprint `json:"footprint"`
}

// ExecutionHarness models the execution of a frame under replay. This core
// never runs real business logic; the default harness deterministically
// replays the frame's recorded outcome, and embedders substitute harnesses
// that drive real executors against the deterministic context.
type ExecutionHarness interface {
	Execute(ctx context.Context, f *frame.Frame, dctx *DeterministicContext, rec SideEffectRecorder) (*HarnessOutcome, error)
}

// RecordedPlayback is the default harness: it re-emits the frame's recorded
// output and footprint, which by construction match the original run
// exactly. One side effect is recorded per playback so audit replays have an
// observable trace even without a real executor.
type RecordedPlayback struct{}

var _ ExecutionHarness = RecordedPlayback{}

// Execute replays the recorded outcome.
func (RecordedPlayback) Execute(ctx context.Context, f *frame.Frame, dctx *DeterministicContext, rec SideEffectRecorder) (*HarnessOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec.RecordSideEffect("playback",
		fmt.Sprintf("replayed recorded outcome of %s/%s via capability %s", f.NounID, f.VerbID, f.CapabilityID))
	return &HarnessOutcome{
		Output:    f.Output,
		Footprint: f.Footprint,
	}, nil
}
