package frame

// QuotaTier names the resource class an invocation was admitted under.
type QuotaTier string

// Known quota tiers, in increasing order of generosity.
const (
	TierFree      QuotaTier = "FREE"
	TierStandard  QuotaTier = "STANDARD"
	TierPriority  QuotaTier = "PRIORITY"
	TierUnmetered QuotaTier = "UNMETERED"
)

// QuotaFootprint is an immutable measurement of the resources one invocation
// consumed. CPUCycles is optional; collectors that cannot sample it leave it
// nil.
type QuotaFootprint struct {
	RuntimeMS       int64   `json:"runtime_ms"`
	PeakMemoryBytes int64   `json:"peak_memory_bytes"`
	IOOperations    uint64  `json:"io_operations"`
	NetworkBytes    uint64  `json:"network_bytes"`
	CPUCycles       *uint64 `json:"cpu_cycles"`
}

// Scale returns a copy of f with every dimension multiplied by factor.
// Simulation uses this to relax recorded limits.
func (f QuotaFootprint) Scale(factor float64) QuotaFootprint {
	scaled := QuotaFootprint{
		RuntimeMS:       int64(float64(f.RuntimeMS) * factor),
		PeakMemoryBytes: int64(float64(f.PeakMemoryBytes) * factor),
		IOOperations:    uint64(float64(f.IOOperations) * factor),
		NetworkBytes:    uint64(float64(f.NetworkBytes) * factor),
	}
	if f.CPUCycles != nil {
		c := uint64(float64(*f.CPUCycles) * factor)
		scaled.CPUCycles = &c
	}
	return scaled
}

// Within reports whether every dimension of f fits inside limit. CPU cycles
// participate only when both sides carry a sample.
func (f QuotaFootprint) Within(limit QuotaFootprint) bool {
	if f.RuntimeMS > limit.RuntimeMS ||
		f.PeakMemoryBytes > limit.PeakMemoryBytes ||
		f.IOOperations > limit.IOOperations ||
		f.NetworkBytes > limit.NetworkBytes {
		return false
	}
	if f.CPUCycles != nil && limit.CPUCycles != nil && *f.CPUCycles > *limit.CPUCycles {
		return false
	}
	return true
}
