// Package testutil provides shared testing utilities: deterministic model
// and embedder doubles, and a PostgreSQL test container harness.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// ScriptedModel implements ai.Model with a queue of pre-programmed
// responses, returned in order. Every request is recorded for assertions,
// which makes it suitable for testing multi-call conversation loops where
// the same user message appears in every request.
//
// Thread-safe for concurrent use.
type ScriptedModel struct {
	mu       sync.Mutex
	queue    []scriptedStep
	requests []*ai.ModelRequest
}

type scriptedStep struct {
	message *ai.Message
	err     error
}

// NewScriptedModel creates an empty scripted model. Enqueue responses before
// use; generating past the end of the script fails the call.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// Name implements ai.Model.
func (m *ScriptedModel) Name() string {
	return "mock/scripted-model"
}

// Register implements ai.Model. The scripted model is called directly and
// never resolved through a registry, so this is a no-op.
func (m *ScriptedModel) Register(r api.Registry) {}

// EnqueueText queues a plain text response.
func (m *ScriptedModel) EnqueueText(text string) {
	m.enqueue(&ai.Message{
		Role:    ai.RoleModel,
		Content: []*ai.Part{ai.NewTextPart(text)},
	}, nil)
}

// EnqueueToolRequests queues a response that requests the given tool calls.
func (m *ScriptedModel) EnqueueToolRequests(requests ...*ai.ToolRequest) {
	parts := make([]*ai.Part, 0, len(requests))
	for _, tr := range requests {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	m.enqueue(&ai.Message{Role: ai.RoleModel, Content: parts}, nil)
}

// EnqueueError queues a failing model call.
func (m *ScriptedModel) EnqueueError(err error) {
	m.enqueue(nil, err)
}

func (m *ScriptedModel) enqueue(msg *ai.Message, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scriptedStep{message: msg, err: err})
}

// Generate implements ai.Model.
func (m *ScriptedModel) Generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()

	// Snapshot the message list; callers may append to their own slice after
	// this call returns.
	snapshot := *req
	snapshot.Messages = make([]*ai.Message, len(req.Messages))
	copy(snapshot.Messages, req.Messages)
	m.requests = append(m.requests, &snapshot)

	if len(m.queue) == 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("scripted model: no response queued for call %d", len(m.requests))
	}
	step := m.queue[0]
	m.queue = m.queue[1:]
	m.mu.Unlock()

	if step.err != nil {
		return nil, step.err
	}

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{Content: step.message.Content})
	}

	return &ai.ModelResponse{
		Request: &snapshot,
		Message: step.message,
	}, nil
}

// Requests returns a copy of all recorded requests in call order.
func (m *ScriptedModel) Requests() []*ai.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*ai.ModelRequest, len(m.requests))
	copy(cp, m.requests)
	return cp
}

// CallCount returns the number of Generate calls made so far.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
