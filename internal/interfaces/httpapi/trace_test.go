package httpapi

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTracesAs(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{in: "httpapi.Handler.GetRanking", want: true},
		{in: "httpapi.RequestLogging", want: false},
		{in: "httpapi.writeError", want: false},
	}

	for _, tt := range tests {
		if got := tracesAs(tt.in); got != tt.want {
			t.Fatalf("tracesAs(%q)=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func TestStartSpan_WithoutParentReturnsContext(t *testing.T) {
	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.GetRanking")
	defer span.End()

	if got != ctx {
		t.Fatalf("expected the same context back")
	}
	if trace.SpanContextFromContext(got).IsValid() {
		t.Fatalf("expected no span context without a parent")
	}
}
