package mcpserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/service"
)

// Approver gates destructive tool calls behind a human decision.
type Approver interface {
	Request(ctx context.Context, tool, description string) (bool, error)
}

// AutoApprove accepts every request. Used by the standalone stdio server,
// which has no window to ask in.
type AutoApprove struct{}

func (AutoApprove) Request(context.Context, string, string) (bool, error) { return true, nil }

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

// ApprovalQueue asks the desktop frontend to confirm destructive MCP calls
// and blocks the tool until the user answers or the timeout passes.
// Events go out on the app's lifecycle context, never on a request's.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	ctx     context.Context
	emitter service.EventEmitter
	timeout time.Duration
}

func NewApprovalQueue(ctx context.Context, emitter service.EventEmitter, timeout time.Duration) *ApprovalQueue {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		ctx:     ctx,
		emitter: emitter,
		timeout: timeout,
	}
}

// Request emits mcp:approval-required and waits for Approve or Reject.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string) (bool, error) {
	id := uuid.New().String()
	ch := make(chan bool, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(q.ctx, "mcp:approval-required", PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case approved := <-ch:
		if !approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-timer.C:
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, ctx.Err()
	case <-q.ctx.Done():
		return false, fmt.Errorf("context cancelled")
	}
}

// Pending lists the ids awaiting an answer.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// Approve marks a pending action as approved.
func (q *ApprovalQueue) Approve(actionID string) { q.answer(actionID, true) }

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(actionID string) { q.answer(actionID, false) }

func (q *ApprovalQueue) answer(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- approved:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
