// Package tracing extracts trace/span identifiers from context for log
// correlation, mirroring ariadne's internal tracing helper
// (engine/internal/telemetry/tracing), generalized to the OTel trace API
// directly rather than an internal shim.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// ExtractIDs returns the trace and span IDs present on ctx's current span,
// or empty strings if ctx carries no valid span context.
func ExtractIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
