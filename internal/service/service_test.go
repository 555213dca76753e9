package service_test

import (
	"context"
	"testing"
	"time"

	"pagebuilder/internal/service"
)

// ─────────────────────────────────────────────────────────────
// runningGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("rel-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("rel-1") {
		t.Fatal("expected second TryLock for same release to fail")
	}
	if !g.TryLock("rel-2") {
		t.Fatal("expected TryLock for different release to succeed")
	}
	if !g.Running("rel-2") {
		t.Fatal("expected rel-2 to be running")
	}
	g.Unlock("rel-1")
	g.Unlock("rel-2")

	if g.Running("rel-1") {
		t.Fatal("expected rel-1 released")
	}
	if !g.TryLock("rel-1") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("rel-1")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("rel-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("rel-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventTreeChanged, map[string]string{"foo": "bar"})
	m.Emit(ctx, service.EventSaved, nil)
	m.Emit(ctx, service.EventTreeChanged, nil)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	if got := len(m.Named(service.EventTreeChanged)); got != 2 {
		t.Errorf("expected 2 tree-changed events, got %d", got)
	}
	if m.Events[len(m.Events)-1].Event != service.EventTreeChanged {
		t.Errorf("unexpected last event %q", m.Events[len(m.Events)-1].Event)
	}
}
