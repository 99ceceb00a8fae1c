package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/Mindburn-Labs/wake/pkg/frame"
)

// TimingPercentiles holds nearest-rank runtime percentiles in milliseconds.
type TimingPercentiles struct {
	P50MS  int64 `json:"p50_ms"`
	P95MS  int64 `json:"p95_ms"`
	P99MS  int64 `json:"p99_ms"`
	P999MS int64 `json:"p999_ms"`
}

// ResourceTotals aggregates footprints across a window. PeakMemoryBytes is
// the maximum across frames; the other fields are sums.
type ResourceTotals struct {
	RuntimeMS       int64  `json:"runtime_ms"`
	PeakMemoryBytes int64  `json:"peak_memory_bytes"`
	IOOperations    uint64 `json:"io_operations"`
	NetworkBytes    uint64 `json:"network_bytes"`
	CPUCycles       uint64 `json:"cpu_cycles"`
}

// SessionCompression is the aggregate view of one session window: how many
// frames it holds, which capabilities they invoked, how long they ran, and
// what they consumed. CompressionRatio is distinct capabilities over frame
// count; values near zero indicate highly repetitive sessions that compress
// well into per-capability summaries.
type SessionCompression struct {
	SessionID            string            `json:"session_id"`
	StartSeq             uint64            `json:"start_seq"`
	EndSeq               uint64            `json:"end_seq"`
	FrameCount           int               `json:"frame_count"`
	DistinctCapabilities int               `json:"distinct_capabilities"`
	InvocationHistogram  map[string]uint64 `json:"invocation_histogram"`
	Percentiles          TimingPercentiles `json:"timing_percentiles"`
	Totals               ResourceTotals    `json:"resource_totals"`
	CompressionRatio     float64           `json:"compression_ratio"`
}

// ComputeCompression aggregates the session's frames whose sequence numbers
// fall inside [startSeq, endSeq]. An empty window is not an error; it yields
// a zero-count aggregate. Frames failing integrity re-verification are
// excluded, matching Query semantics.
func (s *MemoryStore) ComputeCompression(sessionID string, startSeq, endSeq uint64) (*SessionCompression, error) {
	if startSeq > endSeq {
		return nil, fmt.Errorf("compression window inverted: start_seq=%d > end_seq=%d", startSeq, endSeq)
	}

	s.mu.RLock()
	chain := s.bySession[sessionID]
	window := make([]*frame.Frame, 0, len(chain))
	for _, f := range chain {
		seq := f.Metadata.SequenceNumber
		if seq < startSeq || seq > endSeq {
			continue
		}
		if err := f.VerifyIntegrity(); err != nil {
			s.logger.Warn("corrupt frame excluded from compression",
				"content_hash", f.ContentHash,
				"session_id", sessionID,
				"error", err,
			)
			continue
		}
		window = append(window, f)
	}
	s.mu.RUnlock()

	agg := &SessionCompression{
		SessionID:           sessionID,
		StartSeq:            startSeq,
		EndSeq:              endSeq,
		FrameCount:          len(window),
		InvocationHistogram: make(map[string]uint64),
	}
	if len(window) == 0 {
		return agg, nil
	}

	runtimes := make([]int64, 0, len(window))
	for _, f := range window {
		agg.InvocationHistogram[f.CapabilityID]++
		runtimes = append(runtimes, f.Footprint.RuntimeMS)

		agg.Totals.RuntimeMS += f.Footprint.RuntimeMS
		agg.Totals.IOOperations += f.Footprint.IOOperations
		agg.Totals.NetworkBytes += f.Footprint.NetworkBytes
		if f.Footprint.CPUCycles != nil {
			agg.Totals.CPUCycles += *f.Footprint.CPUCycles
		}
		if f.Footprint.PeakMemoryBytes > agg.Totals.PeakMemoryBytes {
			agg.Totals.PeakMemoryBytes = f.Footprint.PeakMemoryBytes
		}
	}

	sort.Slice(runtimes, func(i, j int) bool { return runtimes[i] < runtimes[j] })
	agg.Percentiles = TimingPercentiles{
		P50MS:  percentile(runtimes, 50),
		P95MS:  percentile(runtimes, 95),
		P99MS:  percentile(runtimes, 99),
		P999MS: percentile(runtimes, 99.9),
	}

	agg.DistinctCapabilities = len(agg.InvocationHistogram)
	agg.CompressionRatio = float64(agg.DistinctCapabilities) / float64(agg.FrameCount)
	return agg, nil
}

// percentile returns the nearest-rank percentile of a sorted sample.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
