package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/questline/internal/platform/otel"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("QUESTLINE_OTEL_ENDPOINT", "")

	shutdown, err := otel.Setup(context.Background(), "questline-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupDisabledByFlag(t *testing.T) {
	t.Setenv("QUESTLINE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("QUESTLINE_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "questline-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
