package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/diewo77/go-crm/internal/store")

func startSpan(ctx context.Context, name string, id uint) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	if id != 0 {
		span.SetAttributes(attribute.Int64("crm.entity_id", int64(id)))
	}
	return ctx, span
}

// endSpan records err (if any) and closes the span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
