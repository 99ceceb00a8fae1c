// Package canonical provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization and SHA-256 content hashing for session log frames.
//
// Frame identity is the hex SHA-256 of the canonical encoding, so the encoding
// here is load-bearing: two frames with equal content must produce identical
// bytes regardless of map iteration order, struct tag order, or the Unicode
// representation of their string keys.
package canonical

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// Marshal returns the RFC 8785 canonical JSON representation of v.
//
// v is first marshaled with encoding/json (so struct tags are respected), then
// transformed to canonical form: object keys sorted by UTF-16 code units, ES6
// number formatting, minimal string escaping.
func Marshal(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// Raw canonicalizes a pre-encoded JSON document. It fails on invalid JSON.
func Raw(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical JSON representation of v.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns a hex string.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ValidHash reports whether s looks like a hex SHA-256 digest as produced by
// Hash and HashBytes: exactly 64 lowercase hex characters.
func ValidHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NFC returns s in Unicode Normalization Form C. Canonically equivalent
// strings (for example a precomposed accent vs. a combining sequence) map to
// identical bytes and therefore identical hashes.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// NormalizeEnv returns a copy of env with NFC-normalized names. Two names
// that collide after normalization denote the same variable, which is an
// error rather than a silent overwrite.
func NormalizeEnv(env map[string]string) (map[string]string, error) {
	if env == nil {
		return nil, nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		nk := NFC(k)
		if _, dup := out[nk]; dup {
			return nil, fmt.Errorf("canonical: env name %q collides after NFC normalization", k)
		}
		out[nk] = v
	}
	return out, nil
}

// FoldSeed folds an identifier into a deterministic 64-bit seed: the SHA-256
// digest of the NFC-normalized id, XOR-folded eight bytes at a time. The same
// id always yields the same seed on every platform.
func FoldSeed(id string) uint64 {
	sum := sha256.Sum256([]byte(NFC(id)))
	var seed uint64
	for i := 0; i+8 <= len(sum); i += 8 {
		seed ^= binary.BigEndian.Uint64(sum[i : i+8])
	}
	return seed
}
