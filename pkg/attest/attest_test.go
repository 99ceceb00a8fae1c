package attest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
	"github.com/Mindburn-Labs/wake/pkg/frame"
)

var testSeed = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndVerify(t *testing.T) {
	a, err := NewAttestor(testSeed)
	require.NoError(t, err)

	token, hash, err := a.Issue(EnvironmentClaims{
		SessionID:     "sess-1",
		RuntimeImage:  "wake-runtime:1.4.2",
		KernelVersion: "6.8.0",
		Region:        "eu-central-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, canonical.ValidHash(hash), "attestation hash must be canonical")
	require.Equal(t, canonical.HashBytes([]byte(token)), hash)

	claims, err := a.Verify(token, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", claims.SessionID)
	require.Equal(t, "wake-runtime:1.4.2", claims.RuntimeImage)
	require.Equal(t, "6.8.0", claims.KernelVersion)
	require.Equal(t, "eu-central-1", claims.Region)
	require.Equal(t, Issuer, claims.Issuer)
}

func TestVerify_WrongSession(t *testing.T) {
	a, err := NewAttestor(testSeed)
	require.NoError(t, err)

	token, _, err := a.Issue(EnvironmentClaims{SessionID: "sess-1", RuntimeImage: "img"})
	require.NoError(t, err)

	// A different session derives a different key, so the signature fails.
	_, err = a.Verify(token, "sess-2")
	require.Error(t, err)
}

func TestVerify_TamperedToken(t *testing.T) {
	a, err := NewAttestor(testSeed)
	require.NoError(t, err)

	token, _, err := a.Issue(EnvironmentClaims{SessionID: "sess-1", RuntimeImage: "img"})
	require.NoError(t, err)

	forged := token[:len(token)-4] + "AAAA"
	require.NotEqual(t, token, forged)
	_, err = a.Verify(forged, "sess-1")
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	issuer, err := NewAttestor(testSeed, WithTTL(time.Hour), WithClock(fixedClock(issued)))
	require.NoError(t, err)
	token, _, err := issuer.Issue(EnvironmentClaims{SessionID: "sess-1", RuntimeImage: "img"})
	require.NoError(t, err)

	// Same master seed, clock two hours later: the token has expired.
	verifier, err := NewAttestor(testSeed, WithClock(fixedClock(issued.Add(2*time.Hour))))
	require.NoError(t, err)
	_, err = verifier.Verify(token, "sess-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")

	// Within the window it still verifies.
	inWindow, err := NewAttestor(testSeed, WithClock(fixedClock(issued.Add(30*time.Minute))))
	require.NoError(t, err)
	_, err = inWindow.Verify(token, "sess-1")
	require.NoError(t, err)
}

func TestDeterministicDerivation(t *testing.T) {
	issuer, err := NewAttestor(testSeed)
	require.NoError(t, err)
	token, _, err := issuer.Issue(EnvironmentClaims{SessionID: "sess-1", RuntimeImage: "img"})
	require.NoError(t, err)

	// An independent attestor over the same master seed re-derives the
	// session key and verifies without any key exchange.
	verifier, err := NewAttestor(testSeed)
	require.NoError(t, err)
	_, err = verifier.Verify(token, "sess-1")
	require.NoError(t, err)

	other, err := NewAttestor([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)
	_, err = other.Verify(token, "sess-1")
	require.Error(t, err, "a different master seed must not verify")
}

func TestNewAttestor_SeedLength(t *testing.T) {
	_, err := NewAttestor([]byte("too short"))
	require.Error(t, err)
}

func TestIssue_EmptySession(t *testing.T) {
	a, err := NewAttestor(testSeed)
	require.NoError(t, err)
	_, _, err = a.Issue(EnvironmentClaims{RuntimeImage: "img"})
	require.Error(t, err)
}

func TestAttestationHashBindsFrames(t *testing.T) {
	a, err := NewAttestor(testSeed)
	require.NoError(t, err)
	_, hash, err := a.Issue(EnvironmentClaims{SessionID: "sess-1", RuntimeImage: "img"})
	require.NoError(t, err)

	f, err := frame.New(frame.Params{
		SessionID:       "sess-1",
		AgentID:         "agent-7",
		SequenceNumber:  1,
		NounID:          "document",
		VerbID:          "render",
		CapabilityID:    "cap.render",
		Context:         frame.NewInvocationContext("agent-7", "tenant-1"),
		AttestationHash: hash,
		Clock:           frame.LogicalClock{LogicalTick: 1, WallClockNS: 1_000_000_000},
		Output:          frame.SuccessResult(map[string]any{"ok": true}),
	})
	require.NoError(t, err)
	require.NoError(t, f.VerifyIntegrity())

	// Swapping the attestation after the fact breaks the content hash.
	forged := *f
	forged.AttestationHash = canonical.HashBytes([]byte("other attestation"))
	require.Error(t, forged.VerifyIntegrity())
}
