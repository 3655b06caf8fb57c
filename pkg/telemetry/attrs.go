package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunOperation builds the attribute set for an execute_run span/metric.
func RunOperation(jobID, runID, jobType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("detcore.job.id", jobID),
		attribute.String("detcore.run.id", runID),
		attribute.String("detcore.job.type", jobType),
	}
}

// VerifyOperation builds the attribute set for a verify_run span/metric.
func VerifyOperation(runID string, valid bool, issueCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("detcore.run.id", runID),
		attribute.Bool("detcore.verify.valid", valid),
		attribute.Int("detcore.verify.issue_count", issueCount),
	}
}

// ReplayOperation builds the attribute set for a replay span/metric.
func ReplayOperation(runID string, canReplay bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("detcore.run.id", runID),
		attribute.Bool("detcore.replay.can_replay", canReplay),
	}
}

// MigrationOperation builds the attribute set for a single manifest
// migration hop within a migrate_all span/metric.
func MigrationOperation(manifestPath, fromVersion, toVersion string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("detcore.migration.manifest_path", manifestPath),
		attribute.String("detcore.migration.from_version", fromVersion),
		attribute.String("detcore.migration.to_version", toVersion),
	}
}

// ReindexOperation builds the attribute set for a reindex span/metric.
func ReindexOperation(artifactsRoot string, indexed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("detcore.reindex.artifacts_root", artifactsRoot),
		attribute.Int("detcore.reindex.indexed_count", indexed),
	}
}

// SpanFromContext returns the current span carried in ctx.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent records a named event with attributes on the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus marks the current span as errored when err is non-nil,
// otherwise as successful.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
