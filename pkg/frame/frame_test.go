package frame

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func testParams(session string, seq, tick uint64, wallNS int64) Params {
	return Params{
		SessionID:         session,
		AgentID:           "agent-7",
		SequenceNumber:    seq,
		NounID:            "test_noun",
		VerbID:            "test_verb",
		CapabilityID:      "test_capability",
		CapabilityVersion: "1",
		Context:           NewInvocationContext("agent-7", "tenant-1"),
		Clock:             LogicalClock{LogicalTick: tick, WallClockNS: wallNS},
		Output:            SuccessResult(map[string]any{}),
	}
}

func TestNew_EndToEnd(t *testing.T) {
	f, err := New(testParams("s1", 1, 1, 1_000_000_000))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	if f.ContentHash == "" {
		t.Fatal("content hash is empty")
	}
	if err := f.VerifyIntegrity(); err != nil {
		t.Fatalf("VerifyIntegrity failed on a fresh frame: %v", err)
	}
	if err := f.VerifyIntegrity(); err != nil {
		t.Fatalf("repeated VerifyIntegrity failed: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := testParams("s1", 1, 1, 1_000_000_000)
	p.CapabilityVersion = ""
	p.QuotaTier = ""

	f, err := New(p)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	if f.Metadata.FrameID == "" {
		t.Error("frame id was not generated")
	}
	if f.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %q, want %q", f.SchemaVersion, SchemaVersion)
	}
	if f.CapabilityVersion != DefaultCapabilityVersion {
		t.Errorf("capability version = %q, want %q", f.CapabilityVersion, DefaultCapabilityVersion)
	}
	if f.QuotaTier != TierStandard {
		t.Errorf("quota tier = %q, want %q", f.QuotaTier, TierStandard)
	}
	if f.ExitClass != ExitSuccess {
		t.Errorf("exit class = %q, want %q", f.ExitClass, ExitSuccess)
	}

	errP := testParams("s1", 2, 2, 2_000_000_000)
	errP.Output = ErrorResult("E_TIMEOUT", "capability timed out", nil)
	errF, err := New(errP)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	if errF.ExitClass != ExitCapabilityFailure {
		t.Errorf("exit class for error outcome = %q, want %q", errF.ExitClass, ExitCapabilityFailure)
	}
}

func TestNew_InvariantViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
		check  func(error) bool
	}{
		{
			name:   "empty session id",
			mutate: func(p *Params) { p.SessionID = "" },
			check:  func(err error) bool { return errors.Is(err, ErrEmptySessionID) },
		},
		{
			name:   "empty noun id",
			mutate: func(p *Params) { p.NounID = "" },
			check:  func(err error) bool { return errors.Is(err, ErrEmptyNounID) },
		},
		{
			name:   "empty verb id",
			mutate: func(p *Params) { p.VerbID = "" },
			check:  func(err error) bool { return errors.Is(err, ErrEmptyVerbID) },
		},
		{
			name:   "empty capability id",
			mutate: func(p *Params) { p.CapabilityID = "" },
			check:  func(err error) bool { return errors.Is(err, ErrEmptyCapabilityID) },
		},
		{
			name:   "missing invocation context",
			mutate: func(p *Params) { p.Context = nil },
			check:  func(err error) bool { return errors.Is(err, ErrMissingInvocationContext) },
		},
		{
			name:   "wrong schema version",
			mutate: func(p *Params) { p.SchemaVersion = "9.9.9" },
			check: func(err error) bool {
				var e *InvalidSchemaVersionError
				return errors.As(err, &e) && e.Found == "9.9.9" && e.Expected == SchemaVersion
			},
		},
		{
			name:   "unparseable schema version",
			mutate: func(p *Params) { p.SchemaVersion = "not-a-version" },
			check: func(err error) bool {
				var e *InvalidSchemaVersionError
				return errors.As(err, &e)
			},
		},
		{
			name:   "bad capability version",
			mutate: func(p *Params) { p.CapabilityVersion = "one.two" },
			check:  func(err error) bool { return errors.Is(err, ErrInvalidCapabilityVersion) },
		},
		{
			name: "ambiguous output",
			mutate: func(p *Params) {
				p.Output = OutputResult{
					Success: map[string]any{"ok": true},
					Error:   &OutcomeError{Code: "E", Message: "boom"},
				}
			},
			check: func(err error) bool { return errors.Is(err, ErrAmbiguousOutput) },
		},
		{
			name:   "malformed parent frame hash",
			mutate: func(p *Params) { p.ParentFrameHash = "xyz" },
			check: func(err error) bool {
				var e *InvalidParentFrameHashError
				return errors.As(err, &e) && e.Hash == "xyz"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams("s1", 1, 1, 1_000_000_000)
			tc.mutate(&p)

			f, err := New(p)
			if err == nil {
				t.Fatal("expected construction to fail")
			}
			if f != nil {
				t.Error("a frame escaped a failed construction")
			}
			if !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestContentHash_ExcludesPosition(t *testing.T) {
	ctx := NewInvocationContext("agent-7", "tenant-1")

	build := func(seq uint64, parent string) *Frame {
		p := testParams("s1", seq, 1, 1_000_000_000)
		p.FrameID = "frame-fixed"
		p.Context = ctx
		p.ParentFrameHash = parent
		f, err := New(p)
		if err != nil {
			t.Fatalf("construction failed: %v", err)
		}
		return f
	}

	a := build(1, "")
	b := build(42, strings.Repeat("ab", 32))

	if a.ContentHash != b.ContentHash {
		t.Errorf("content hash depends on position: %s != %s", a.ContentHash, b.ContentHash)
	}

	p := testParams("s1", 1, 1, 1_000_000_000)
	p.FrameID = "frame-fixed"
	p.Context = ctx
	p.InputArgs = map[string]any{"q": "different"}
	c, err := New(p)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	if c.ContentHash == a.ContentHash {
		t.Error("content hash ignored input args")
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	f, err := New(testParams("s1", 1, 1, 1_000_000_000))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	h1, err := f.ComputeContentHash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := f.ComputeContentHash()
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Errorf("hashing the same frame twice diverged: %s != %s", h1, h2)
	}
	if h1 != f.ContentHash {
		t.Errorf("recomputed hash %s does not match stored %s", h1, f.ContentHash)
	}
}

func TestContentHash_CoversHashedFields(t *testing.T) {
	base := func() Params {
		p := testParams("s1", 1, 1, 1_000_000_000)
		p.FrameID = "frame-fixed"
		p.Context = &InvocationContext{ContextID: "ctx-1", AgentIdentity: "agent-7", TenantID: "tenant-1"}
		return p
	}

	ref, err := New(base())
	if err != nil {
		t.Fatal(err)
	}

	mutations := []struct {
		name   string
		mutate func(*Params)
	}{
		{"noun", func(p *Params) { p.NounID = "other_noun" }},
		{"env vars", func(p *Params) { p.EnvVars = map[string]string{"HOME": "/tmp"} }},
		{"quota tier", func(p *Params) { p.QuotaTier = TierPriority }},
		{"footprint", func(p *Params) { p.Footprint.RuntimeMS = 777 }},
		{"tags", func(p *Params) { p.Tags = []string{"hot"} }},
		{"attestation hash", func(p *Params) { p.AttestationHash = strings.Repeat("cd", 32) }},
		{"logical tick", func(p *Params) { p.Clock.LogicalTick = 99 }},
		{"outcome", func(p *Params) { p.Output = ErrorResult("E", "failed", nil) }},
		{"telemetry", func(p *Params) { p.TelemetryProfile = json.RawMessage(`{"sink":"otlp"}`) }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			p := base()
			m.mutate(&p)
			f, err := New(p)
			if err != nil {
				t.Fatalf("construction failed: %v", err)
			}
			if f.ContentHash == ref.ContentHash {
				t.Errorf("mutating %s did not change the content hash", m.name)
			}
		})
	}
}

func TestVerifyIntegrity_TamperDetection(t *testing.T) {
	f, err := New(testParams("s1", 1, 1, 1_000_000_000))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	f.InputArgs = map[string]any{"amount": 1_000_000}

	err = f.VerifyIntegrity()
	if err == nil {
		t.Fatal("expected tamper detection")
	}

	var tampered *TamperedContentHashError
	if !errors.As(err, &tampered) {
		t.Fatalf("expected TamperedContentHashError, got %v", err)
	}
	if tampered.Expected != f.ContentHash {
		t.Errorf("Expected field = %s, want stored hash %s", tampered.Expected, f.ContentHash)
	}
	if tampered.Found == tampered.Expected {
		t.Error("Found hash should differ from the stored hash")
	}
	if !IsTamperedContentHash(err) {
		t.Error("IsTamperedContentHash did not match")
	}
}

func TestVerifyIntegrity_DoesNotMutate(t *testing.T) {
	f, err := New(testParams("s1", 1, 1, 1_000_000_000))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	before, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := f.VerifyIntegrity(); err != nil {
			t.Fatalf("VerifyIntegrity call %d failed: %v", i+1, err)
		}
	}

	after, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("VerifyIntegrity mutated the frame")
	}
}

func TestValidateAgainstPrevious(t *testing.T) {
	a, err := New(testParams("s1", 1, 1, 1_000_000_000))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	t.Run("nil previous passes", func(t *testing.T) {
		if err := a.ValidateAgainstPrevious(nil, DefaultMaxClockSkew); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("duplicate sequence", func(t *testing.T) {
		b, err := New(testParams("s1", 1, 2, 1_000_000_001))
		if err != nil {
			t.Fatal(err)
		}
		err = b.ValidateAgainstPrevious(a, DefaultMaxClockSkew)
		var nm *NonMonotonicFrameIndexError
		if !errors.As(err, &nm) {
			t.Fatalf("expected NonMonotonicFrameIndexError, got %v", err)
		}
		if nm.Previous != 1 || nm.Current != 1 {
			t.Errorf("got previous=%d current=%d, want 1 and 1", nm.Previous, nm.Current)
		}
	})

	t.Run("clock regression", func(t *testing.T) {
		c, err := New(testParams("s1", 2, 2, 999_999_999))
		if err != nil {
			t.Fatal(err)
		}
		err = c.ValidateAgainstPrevious(a, DefaultMaxClockSkew)
		var cr *ClockRegressionError
		if !errors.As(err, &cr) {
			t.Fatalf("expected ClockRegressionError, got %v", err)
		}
		if cr.PreviousNS != 1_000_000_000 || cr.CurrentNS != 999_999_999 {
			t.Errorf("got previous_ns=%d current_ns=%d", cr.PreviousNS, cr.CurrentNS)
		}
	})

	t.Run("excessive skew", func(t *testing.T) {
		farFuture := 1_000_000_000 + (10 * time.Minute).Nanoseconds()
		d, err := New(testParams("s1", 2, 2, farFuture))
		if err != nil {
			t.Fatal(err)
		}
		err = d.ValidateAgainstPrevious(a, DefaultMaxClockSkew)
		var sk *ExcessiveClockSkewError
		if !errors.As(err, &sk) {
			t.Fatalf("expected ExcessiveClockSkewError, got %v", err)
		}
		if sk.MaxAllowedNS != DefaultMaxClockSkew.Nanoseconds() {
			t.Errorf("max_allowed_ns = %d, want %d", sk.MaxAllowedNS, DefaultMaxClockSkew.Nanoseconds())
		}

		// A zero bound disables the skew check.
		if err := d.ValidateAgainstPrevious(a, 0); err != nil {
			t.Errorf("skew check should be disabled: %v", err)
		}
	})

	t.Run("session mismatch", func(t *testing.T) {
		e, err := New(testParams("s2", 2, 2, 1_000_000_001))
		if err != nil {
			t.Fatal(err)
		}
		err = e.ValidateAgainstPrevious(a, DefaultMaxClockSkew)
		var sm *SessionMismatchError
		if !errors.As(err, &sm) {
			t.Fatalf("expected SessionMismatchError, got %v", err)
		}
	})

	t.Run("valid successor", func(t *testing.T) {
		ok, err := New(testParams("s1", 2, 2, 1_000_000_500))
		if err != nil {
			t.Fatal(err)
		}
		if err := ok.ValidateAgainstPrevious(a, DefaultMaxClockSkew); err != nil {
			t.Errorf("valid successor rejected: %v", err)
		}
	})
}

func TestFrame_JSONRoundTrip(t *testing.T) {
	p := testParams("s1", 3, 7, 2_000_000_000)
	p.InputArgs = map[string]any{"query": "status", "limit": 10}
	p.EnvVars = map[string]string{"PATH": "/usr/bin", "LANG": "C"}
	p.Tags = []string{"replayable", "hot"}
	p.TelemetryProfile = json.RawMessage(`{"sink": "otlp", "sample": 0.25}`)

	f, err := New(p)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}

	var back Frame
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}

	if back.ContentHash != f.ContentHash {
		t.Errorf("content hash lost in round trip: %s != %s", back.ContentHash, f.ContentHash)
	}
	if err := back.VerifyIntegrity(); err != nil {
		t.Errorf("round-tripped frame failed integrity: %v", err)
	}
}

func TestNew_EnvNamesNormalized(t *testing.T) {
	p := testParams("s1", 1, 1, 1_000_000_000)
	p.EnvVars = map[string]string{"é_MODE": "strict"}

	f, err := New(p)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}
	if _, ok := f.EnvVars["é_MODE"]; !ok {
		t.Error("env name was not NFC-normalized")
	}
}

func TestNew_ArgsSchemaValidation(t *testing.T) {
	schema, err := CompileArgsSchema("transfer", `{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"amount": {"type": "number", "minimum": 0}
		}
	}`)
	if err != nil {
		t.Fatalf("schema compile failed: %v", err)
	}

	p := testParams("s1", 1, 1, 1_000_000_000)
	p.InputArgs = map[string]any{"amount": 25.5}
	p.ArgsSchema = schema
	if _, err := New(p); err != nil {
		t.Errorf("valid args rejected: %v", err)
	}

	bad := testParams("s1", 1, 1, 1_000_000_000)
	bad.InputArgs = map[string]any{"amount": -3}
	bad.ArgsSchema = schema
	if _, err := New(bad); err == nil {
		t.Error("invalid args accepted")
	}

	missing := testParams("s1", 1, 1, 1_000_000_000)
	missing.ArgsSchema = schema
	if _, err := New(missing); err == nil {
		t.Error("missing required arg accepted")
	}
}

func TestNew_InvalidTelemetryRejected(t *testing.T) {
	p := testParams("s1", 1, 1, 1_000_000_000)
	p.TelemetryProfile = json.RawMessage(`{not valid`)

	if _, err := New(p); err == nil {
		t.Error("invalid telemetry JSON accepted")
	}
}
