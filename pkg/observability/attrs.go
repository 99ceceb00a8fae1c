package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Semantic convention attributes for the session log.
var (
	// Frame attributes
	AttrSessionID     = attribute.Key("wake.session.id")
	AttrFrameHash     = attribute.Key("wake.frame.hash")
	AttrFrameSequence = attribute.Key("wake.frame.sequence")

	// Capability attributes
	AttrCapabilityID = attribute.Key("wake.capability.id")
	AttrQuotaTier    = attribute.Key("wake.quota.tier")
	AttrExitClass    = attribute.Key("wake.exit.class")

	// Replay attributes
	AttrReplayMode = attribute.Key("wake.replay.mode")
	AttrBatchSize  = attribute.Key("wake.batch.size")
)

// FrameAttrs creates attributes for single-frame operations.
func FrameAttrs(sessionID, frameHash string, sequence uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSessionID.String(sessionID),
		AttrFrameHash.String(frameHash),
		AttrFrameSequence.Int64(int64(sequence)),
	}
}

// CapabilityAttrs creates attributes for capability invocation records.
func CapabilityAttrs(capabilityID, quotaTier, exitClass string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCapabilityID.String(capabilityID),
		AttrQuotaTier.String(quotaTier),
		AttrExitClass.String(exitClass),
	}
}

// ReplayAttrs creates attributes for replay batches.
func ReplayAttrs(mode string, batchSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrReplayMode.String(mode),
		AttrBatchSize.Int(batchSize),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records err on the current span when non-nil.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
