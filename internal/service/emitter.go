package service

import (
	"context"
	"sync"
)

// Event names emitted to the frontend.
const (
	EventTreeChanged = "editor:tree-changed"
	EventSaved       = "editor:saved"
	EventSaveFailed  = "editor:save-failed"
	EventReloaded    = "editor:reloaded"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit;
// the MCP server uses NopEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Ctx   context.Context
	Event string
	Data  any
}

func (m *MockEmitter) Emit(ctx context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Ctx: ctx, Event: event, Data: data})
}

// Named returns the recorded emissions of one event, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
