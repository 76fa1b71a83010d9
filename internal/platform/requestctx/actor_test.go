package requestctx

import (
	"context"
	"testing"
)

func TestActorIDFromContextRoundTrip(t *testing.T) {
	ctx := WithActorID(context.Background(), "user-42")
	if got := ActorIDFromContext(ctx); got != "user-42" {
		t.Fatalf("ActorIDFromContext = %q, want %q", got, "user-42")
	}
}

func TestActorIDFromContextEmpty(t *testing.T) {
	if got := ActorIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestActorIDFromContextNil(t *testing.T) {
	if got := ActorIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithActorIDNilContext(t *testing.T) {
	ctx := WithActorID(nil, "user-99")
	if ctx == nil {
		t.Fatalf("expected non-nil context")
	}
	if got := ActorIDFromContext(ctx); got != "user-99" {
		t.Fatalf("ActorIDFromContext = %q, want %q", got, "user-99")
	}
}

func TestCorrelationIDIndependentOfActor(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "run-1")
	ctx = WithActorID(ctx, "user-1")
	if got := CorrelationIDFromContext(ctx); got != "run-1" {
		t.Fatalf("CorrelationIDFromContext = %q, want %q", got, "run-1")
	}
	if got := CorrelationIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}
