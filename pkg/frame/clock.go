package frame

import "time"

// LogicalClock pairs a monotonic logical tick with a captured wall-clock
// reading. Ordering is primarily by tick; the wall clock is advisory and is
// checked only for regression and bounded skew between consecutive frames.
type LogicalClock struct {
	LogicalTick uint64 `json:"logical_tick"`
	WallClockNS int64  `json:"wall_clock_ns"`
}

// NewLogicalClock captures wall at nanosecond resolution.
func NewLogicalClock(tick uint64, wall time.Time) LogicalClock {
	return LogicalClock{LogicalTick: tick, WallClockNS: wall.UnixNano()}
}

// WallClock returns the captured wall-clock reading in UTC.
func (c LogicalClock) WallClock() time.Time {
	return time.Unix(0, c.WallClockNS).UTC()
}

// Before reports whether c orders strictly before other, comparing logical
// ticks first and wall clocks as a tiebreaker.
func (c LogicalClock) Before(other LogicalClock) bool {
	if c.LogicalTick != other.LogicalTick {
		return c.LogicalTick < other.LogicalTick
	}
	return c.WallClockNS < other.WallClockNS
}

// Compare returns -1, 0, or +1 ordering c against other with the same rule
// as Before.
func (c LogicalClock) Compare(other LogicalClock) int {
	switch {
	case c.Before(other):
		return -1
	case other.Before(c):
		return 1
	default:
		return 0
	}
}
