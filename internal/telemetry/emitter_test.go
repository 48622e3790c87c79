package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/questline/internal/ledger/storage"
	"github.com/louisbranch/questline/internal/testkit/ledgerfakes"
)

func TestEmitStampsMissingTimestamp(t *testing.T) {
	store := ledgerfakes.NewStore()
	emitter := NewEmitter(store)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	emitter.clock = func() time.Time { return now }

	err := emitter.Emit(context.Background(), storage.TelemetryEvent{
		EventName: "deposit.reversal",
		Severity:  string(SeverityWarn),
		Actor:     "alice",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(store.TelemetryLog) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.TelemetryLog))
	}
	evt := store.TelemetryLog[0]
	if !evt.Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, evt.Timestamp)
	}
	if evt.EventName != "deposit.reversal" {
		t.Fatalf("unexpected event name %q", evt.EventName)
	}
}

func TestEmitKeepsExplicitTimestamp(t *testing.T) {
	store := ledgerfakes.NewStore()
	emitter := NewEmitter(store)
	stamped := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	err := emitter.Emit(context.Background(), storage.TelemetryEvent{
		Timestamp: stamped,
		EventName: "score.correction",
		Severity:  string(SeverityInfo),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	if got := store.TelemetryLog[0].Timestamp; !got.Equal(stamped) {
		t.Fatalf("expected timestamp %v, got %v", stamped, got)
	}
}

func TestEmitNilEmitterIsNoOp(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Emit(context.Background(), storage.TelemetryEvent{EventName: "noop"}); err != nil {
		t.Fatalf("emit on nil emitter: %v", err)
	}

	emitter = NewEmitter(nil)
	if err := emitter.Emit(context.Background(), storage.TelemetryEvent{EventName: "noop"}); err != nil {
		t.Fatalf("emit on nil store: %v", err)
	}
}
