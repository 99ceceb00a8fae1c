package replay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"sync"
)

// DeterministicPRNG yields a reproducible random stream from a 64-bit seed.
// Each draw is HMAC-SHA256(seed, counter) truncated to the first eight bytes,
// so the stream is identical on every platform and across Go releases,
// a guarantee math/rand does not make. Safe for concurrent use.
type DeterministicPRNG struct {
	mu      sync.Mutex
	key     []byte
	counter uint64
}

// NewDeterministicPRNG seeds a PRNG. Equal seeds produce equal streams.
func NewDeterministicPRNG(seed uint64) *DeterministicPRNG {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seed)
	return &DeterministicPRNG{key: key}
}

// Uint64 returns the next value of the stream.
func (p *DeterministicPRNG) Uint64() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next()
}

// next advances the counter and produces one draw. Callers hold p.mu.
func (p *DeterministicPRNG) next() uint64 {
	p.counter++
	counterBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(counterBytes, p.counter)

	h := hmac.New(sha256.New, p.key)
	h.Write(counterBytes)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// Float64 returns the next value mapped into [0, 1).
func (p *DeterministicPRNG) Float64() float64 {
	return float64(p.Uint64()>>11) / (1 << 53)
}

// Intn returns the next value mapped into [0, n). n <= 0 yields 0.
func (p *DeterministicPRNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(p.Uint64() % uint64(n))
}

// Bytes returns the next n bytes of the stream.
func (p *DeterministicPRNG) Bytes(n int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, n)
	for i := 0; i < n; i += 8 {
		val := p.next()
		chunk := make([]byte, 8)
		binary.BigEndian.PutUint64(chunk, val)
		copy(out[i:], chunk)
	}
	return out
}
