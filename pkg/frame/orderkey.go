package frame

import "sort"

// FrameOrderKey is the derived total-order key for frames: session first,
// then logical tick, then sequence number. It exists purely for sorting.
type FrameOrderKey struct {
	SessionID      string `json:"session_id"`
	LogicalTick    uint64 `json:"logical_tick"`
	SequenceNumber uint64 `json:"sequence_number"`
}

// OrderKey derives the frame's sort key.
func (f *Frame) OrderKey() FrameOrderKey {
	return FrameOrderKey{
		SessionID:      f.Metadata.SessionID,
		LogicalTick:    f.Clock.LogicalTick,
		SequenceNumber: f.Metadata.SequenceNumber,
	}
}

// Less reports whether k orders strictly before other.
func (k FrameOrderKey) Less(other FrameOrderKey) bool {
	if k.SessionID != other.SessionID {
		return k.SessionID < other.SessionID
	}
	if k.LogicalTick != other.LogicalTick {
		return k.LogicalTick < other.LogicalTick
	}
	return k.SequenceNumber < other.SequenceNumber
}

// SortFrames sorts frames in place by FrameOrderKey.
func SortFrames(frames []*Frame) {
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].OrderKey().Less(frames[j].OrderKey())
	})
}
