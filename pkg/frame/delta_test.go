package frame

import (
	"testing"
)

func deltaFrame(t *testing.T, seq uint64, args map[string]any, out OutputResult, fp QuotaFootprint) *Frame {
	t.Helper()
	p := testParams("s1", seq, seq, int64(seq)*1_000_000_000)
	p.InputArgs = args
	p.Output = out
	p.Footprint = fp
	f, err := New(p)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	return f
}

func TestComputeDelta_IdenticalFrames(t *testing.T) {
	args := map[string]any{"q": "status"}
	fp := QuotaFootprint{RuntimeMS: 10, PeakMemoryBytes: 1024, IOOperations: 3}

	a := deltaFrame(t, 1, args, SuccessResult(map[string]any{"ok": true}), fp)
	b := deltaFrame(t, 2, args, SuccessResult(map[string]any{"ok": true}), fp)

	d, err := ComputeDelta(a, b)
	if err != nil {
		t.Fatalf("ComputeDelta failed: %v", err)
	}

	if d.ArgsDiff != nil {
		t.Errorf("expected nil args diff, got %+v", d.ArgsDiff)
	}
	if d.OutcomeChanged {
		t.Error("identical outcomes reported as changed")
	}
	if d.RuntimeDeltaMS != 0 || d.MemoryDeltaBytes != 0 || d.IODelta != 0 {
		t.Errorf("expected zero deltas, got runtime=%d memory=%d io=%d", d.RuntimeDeltaMS, d.MemoryDeltaBytes, d.IODelta)
	}
	if d.FrameAHash != a.ContentHash || d.FrameBHash != b.ContentHash {
		t.Error("delta does not reference both frame hashes")
	}
}

func TestComputeDelta_ArgsDiff(t *testing.T) {
	a := deltaFrame(t, 1,
		map[string]any{"keep": 1, "change": "old", "drop": true},
		SuccessResult(nil), QuotaFootprint{})
	b := deltaFrame(t, 2,
		map[string]any{"keep": 1, "change": "new", "add": 3.5},
		SuccessResult(nil), QuotaFootprint{})

	d, err := ComputeDelta(a, b)
	if err != nil {
		t.Fatalf("ComputeDelta failed: %v", err)
	}
	if d.ArgsDiff == nil {
		t.Fatal("expected an args diff")
	}

	if _, ok := d.ArgsDiff.Added["add"]; !ok {
		t.Error("added key not reported")
	}
	if _, ok := d.ArgsDiff.Removed["drop"]; !ok {
		t.Error("removed key not reported")
	}
	ch, ok := d.ArgsDiff.Changed["change"]
	if !ok {
		t.Fatal("changed key not reported")
	}
	if ch.From != "old" || ch.To != "new" {
		t.Errorf("change = %+v, want old -> new", ch)
	}
	if _, ok := d.ArgsDiff.Changed["keep"]; ok {
		t.Error("unchanged key reported as changed")
	}
}

func TestComputeDelta_DistinctErrorsCountAsChanged(t *testing.T) {
	a := deltaFrame(t, 1, nil, ErrorResult("E_TIMEOUT", "timed out", nil), QuotaFootprint{})
	b := deltaFrame(t, 2, nil, ErrorResult("E_DENIED", "policy denied", nil), QuotaFootprint{})

	d, err := ComputeDelta(a, b)
	if err != nil {
		t.Fatalf("ComputeDelta failed: %v", err)
	}
	if !d.OutcomeChanged {
		t.Error("distinct error payloads must count as a changed outcome")
	}

	c := deltaFrame(t, 3, nil, ErrorResult("E_TIMEOUT", "timed out", nil), QuotaFootprint{})
	d2, err := ComputeDelta(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if d2.OutcomeChanged {
		t.Error("identical error payloads reported as changed")
	}
}

func TestComputeDelta_SuccessVsError(t *testing.T) {
	a := deltaFrame(t, 1, nil, SuccessResult(map[string]any{}), QuotaFootprint{})
	b := deltaFrame(t, 2, nil, ErrorResult("E", "boom", nil), QuotaFootprint{})

	d, err := ComputeDelta(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !d.OutcomeChanged {
		t.Error("success vs error not reported as changed")
	}
}

func TestComputeDelta_SignedResourceDeltas(t *testing.T) {
	a := deltaFrame(t, 1, nil, SuccessResult(nil),
		QuotaFootprint{RuntimeMS: 100, PeakMemoryBytes: 4096, IOOperations: 10})
	b := deltaFrame(t, 2, nil, SuccessResult(nil),
		QuotaFootprint{RuntimeMS: 60, PeakMemoryBytes: 8192, IOOperations: 4})

	d, err := ComputeDelta(a, b)
	if err != nil {
		t.Fatal(err)
	}

	if d.RuntimeDeltaMS != -40 {
		t.Errorf("runtime delta = %d, want -40", d.RuntimeDeltaMS)
	}
	if d.MemoryDeltaBytes != 4096 {
		t.Errorf("memory delta = %d, want 4096", d.MemoryDeltaBytes)
	}
	if d.IODelta != -6 {
		t.Errorf("io delta = %d, want -6", d.IODelta)
	}
}

func TestComputeDelta_NilFrame(t *testing.T) {
	f := deltaFrame(t, 1, nil, SuccessResult(nil), QuotaFootprint{})

	if _, err := ComputeDelta(nil, f); err == nil {
		t.Error("nil first frame accepted")
	}
	if _, err := ComputeDelta(f, nil); err == nil {
		t.Error("nil second frame accepted")
	}
}
