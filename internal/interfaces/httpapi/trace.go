package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("polla/internal/interfaces/httpapi")

const handlerSpanPrefix = "httpapi.Handler."

// startSpan nests a span under the otelhttp server span for handler names
// only; middleware and response helpers get the parent back unchanged.
// Routes otelhttp filters out (health, metrics) carry no parent and get none.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !tracesAs(name) || !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return apiTracer.Start(ctx, name)
}

func tracesAs(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}
