// Package llmtest provides in-memory gateways for tests.
package llmtest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Step is one scripted gateway reply.
type Step struct {
	Completion llm.Completion
	Err        error
}

// Text scripts a final message.
func Text(text string) Step {
	return Step{Completion: llm.Completion{Text: text}}
}

// Tools scripts a tool request turn.
func Tools(requests ...types.ToolInvocationRequest) Step {
	return Step{Completion: llm.Completion{ToolRequests: requests}}
}

// Fail scripts an error.
func Fail(err error) Step {
	return Step{Err: err}
}

// Scripted replays steps in order and records every request. Final texts are
// validated against the request shape like a real gateway would.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []llm.Request
}

// New creates a gateway that answers with steps in order.
func New(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

func (s *Scripted) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	s.mu.Lock()
	req.Messages = slices.Clone(req.Messages)
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return llm.Completion{}, failure.Transport("llmtest.complete", errors.New("no scripted reply left"))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.Completion{}, failure.Transport("llmtest.complete", err)
	}
	if step.Err != nil {
		return llm.Completion{}, step.Err
	}
	return llm.Finalize(req, step.Completion)
}

// Calls returns the number of requests received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the recorded requests.
func (s *Scripted) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Remaining returns the number of unused steps.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// ByShape answers each request with the text registered for its shape name,
// which keeps concurrent callers deterministic. Unshaped requests use the
// "" entry. Every answered request is counted per shape.
type ByShape struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
}

// NewByShape creates a ByShape gateway.
func NewByShape(replies map[string]string) *ByShape {
	return &ByShape{replies: replies, calls: make(map[string]int)}
}

func (b *ByShape) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	name := ""
	if req.Shape != nil {
		name = req.Shape.Name()
	}

	b.mu.Lock()
	b.calls[name]++
	text, ok := b.replies[name]
	b.mu.Unlock()

	if !ok {
		return llm.Completion{}, failure.Transport("llmtest.complete", errors.New("no reply for shape "+name))
	}
	return llm.Finalize(req, llm.Completion{Text: text})
}

// Calls returns how many requests used the named shape.
func (b *ByShape) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}
