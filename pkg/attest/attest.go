// Package attest issues and verifies environment attestations: EdDSA JWTs
// binding the runtime environment a session executed in. The token's
// canonical hash is what frame producers place in a frame's attestation_hash
// field, tying every frame to an attested environment without embedding the
// token itself.
//
// Signing keys are per-session, derived deterministically from a 32-byte
// master seed with HKDF-SHA256, so any holder of the master seed can
// re-derive the verification key for a session without key exchange.
package attest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
)

const (
	// Issuer identifies tokens minted by this package.
	Issuer = "wake/attest"

	// Audience is the consumer every attestation is addressed to.
	Audience = "wake.session-log"

	// DefaultTTL bounds attestation validity when no override is given.
	DefaultTTL = 24 * time.Hour

	// derivationInfo prefixes the per-session HKDF info string. Versioned so
	// a future derivation change cannot collide with existing keys.
	derivationInfo = "wake/attest/v1:"
)

// EnvironmentClaims bind the runtime environment of one session.
type EnvironmentClaims struct {
	jwt.RegisteredClaims
	SessionID     string `json:"session_id"`
	RuntimeImage  string `json:"runtime_image"`
	KernelVersion string `json:"kernel_version"`
	Region        string `json:"region,omitempty"`
}

// Attestor signs and verifies environment attestations with per-session
// Ed25519 keys derived from a master seed.
type Attestor struct {
	masterSeed []byte
	ttl        time.Duration
	clock      func() time.Time
}

// Option configures an Attestor.
type Option func(*Attestor)

// WithTTL overrides the attestation validity window.
func WithTTL(d time.Duration) Option {
	return func(a *Attestor) { a.ttl = d }
}

// WithClock overrides the time source for issuance and validation.
func WithClock(clock func() time.Time) Option {
	return func(a *Attestor) { a.clock = clock }
}

// NewAttestor builds an attestor around a 32-byte master seed. The seed is
// copied; the caller's slice may be zeroed afterwards.
func NewAttestor(masterSeed []byte, opts ...Option) (*Attestor, error) {
	if len(masterSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("master seed must be %d bytes, got %d", ed25519.SeedSize, len(masterSeed))
	}
	a := &Attestor{
		masterSeed: append([]byte(nil), masterSeed...),
		ttl:        DefaultTTL,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// deriveKey derives the session's Ed25519 signing key. Derivation is
// deterministic: the same master seed and session id always yield the same
// keypair.
func (a *Attestor) deriveKey(sessionID string) (ed25519.PrivateKey, error) {
	if sessionID == "" {
		return nil, errors.New("session id must not be empty")
	}
	r := hkdf.New(sha256.New, a.masterSeed, nil, []byte(derivationInfo+sessionID))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Issue signs env with its session's derived key and returns the token plus
// its canonical hash, the value frame producers record as attestation_hash.
// Registered claims are stamped here; whatever the caller set is replaced.
func (a *Attestor) Issue(env EnvironmentClaims) (token string, attestationHash string, err error) {
	key, err := a.deriveKey(env.SessionID)
	if err != nil {
		return "", "", fmt.Errorf("issue attestation: %w", err)
	}

	now := a.clock().UTC()
	env.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   env.SessionID,
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, env).SignedString(key)
	if err != nil {
		return "", "", fmt.Errorf("issue attestation: %w", err)
	}
	return signed, canonical.HashBytes([]byte(signed)), nil
}

// Verify parses token with the session-derived public key and enforces
// signature, method, issuer, audience, and validity window. A token issued
// for a different session fails verification because its key differs.
func (a *Attestor) Verify(token, sessionID string) (*EnvironmentClaims, error) {
	key, err := a.deriveKey(sessionID)
	if err != nil {
		return nil, fmt.Errorf("verify attestation: %w", err)
	}
	pub := key.Public().(ed25519.PublicKey)

	parsed, err := jwt.ParseWithClaims(token, &EnvironmentClaims{},
		func(*jwt.Token) (any, error) { return pub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil {
		return nil, fmt.Errorf("verify attestation: %w", err)
	}

	claims, ok := parsed.Claims.(*EnvironmentClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.SessionID != sessionID {
		return nil, fmt.Errorf("attestation bound to session %q, not %q", claims.SessionID, sessionID)
	}
	return claims, nil
}
