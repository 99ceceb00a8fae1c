package replay

import (
	"fmt"
	"sync"
	"time"

	"github.com/Mindburn-Labs/wake/pkg/canonical"
	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// DeterministicContext supplies the substitutes a replayed execution uses in
// place of nondeterministic inputs: a fixed clock, a seeded random stream,
// the frame's captured environment, and fail-closed stub tables for network
// and filesystem reads. It is owned by one engine execution and never
// persisted.
type DeterministicContext struct {
	// FixedTime is the frame's captured wall clock; every "now" during
	// replay reads this instant.
	FixedTime time.Time

	// Seed is the deterministic fold of the frame id.
	Seed uint64

	mu      sync.Mutex
	env     map[string]string
	network map[string][]byte
	files   map[string][]byte
	rng     *DeterministicPRNG
}

// NewDeterministicContext derives the replay substitutes from a frame. The
// stub tables start empty; an external execution harness populates them
// before running anything that touches the network or filesystem.
func NewDeterministicContext(f *frame.Frame) *DeterministicContext {
	seed := canonical.FoldSeed(f.Metadata.FrameID)
	env := make(map[string]string, len(f.EnvVars))
	for k, v := range f.EnvVars {
		env[k] = v
	}
	return &DeterministicContext{
		FixedTime: f.Clock.WallClock(),
		Seed:      seed,
		env:       env,
		network:   make(map[string][]byte),
		files:     make(map[string][]byte),
		rng:       NewDeterministicPRNG(seed),
	}
}

// Now returns the fixed replay instant.
func (d *DeterministicContext) Now() time.Time {
	return d.FixedTime
}

// RNG returns the seeded random stream. Replays of the same frame observe
// identical draws in identical order.
func (d *DeterministicContext) RNG() *DeterministicPRNG {
	return d.rng
}

// LookupEnv reads a captured environment variable.
func (d *DeterministicContext) LookupEnv(name string) (string, bool) {
	v, ok := d.env[canonical.NFC(name)]
	return v, ok
}

// Environ returns a copy of the captured environment.
func (d *DeterministicContext) Environ() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.env))
	for k, v := range d.env {
		out[k] = v
	}
	return out
}

// StubNetwork registers the response replay serves for a URL.
func (d *DeterministicContext) StubNetwork(url string, response []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.network[url] = response
}

// NetworkResponse serves a stubbed network response. Unstubbed URLs fail
// closed: live network access during replay would reintroduce the
// nondeterminism replay exists to remove.
func (d *DeterministicContext) NetworkResponse(url string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp, ok := d.network[url]
	if !ok {
		return nil, fmt.Errorf("REPLAY_STUB_MISS: network blocked during replay, url=%s", url)
	}
	return resp, nil
}

// StubFile registers the contents replay serves for a path.
func (d *DeterministicContext) StubFile(path string, contents []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[path] = contents
}

// FileContents serves a stubbed file read, failing closed like
// NetworkResponse.
func (d *DeterministicContext) FileContents(path string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	contents, ok := d.files[path]
	if !ok {
		return nil, fmt.Errorf("REPLAY_STUB_MISS: filesystem blocked during replay, path=%s", path)
	}
	return contents, nil
}
