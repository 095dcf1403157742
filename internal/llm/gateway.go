// Package llm is the boundary to the language-model inference service.
package llm

import (
	"context"

	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Request is one completion call: the conversation so far, the tools the
// model may request, and an optional shape the final answer must conform to.
type Request struct {
	Messages []types.Message
	Tools    []types.ToolDeclaration
	Shape    *shape.Shape
}

// Completion is either a final message or a set of tool invocation requests.
type Completion struct {
	Text         string
	ToolRequests []types.ToolInvocationRequest

	// Value is the validated answer when the request carried a shape.
	Value any
}

// IsFinal reports whether the model answered instead of requesting tools.
func (c Completion) IsFinal() bool {
	return len(c.ToolRequests) == 0
}

// Gateway submits a conversation to the model. Implementations do not retry.
// Network and upstream failures are returned as failure.KindTransport, and a
// final text that does not fit req.Shape as failure.KindShape.
type Gateway interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req Request) (Completion, error)

func (f GatewayFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}

// Finalize validates a final text against the request shape and fills Value.
// Gateways call it before returning a final completion.
func Finalize(req Request, c Completion) (Completion, error) {
	if !c.IsFinal() || req.Shape == nil {
		return c, nil
	}
	v, err := req.Shape.Validate([]byte(c.Text))
	if err != nil {
		return Completion{}, err
	}
	c.Value = v
	return c, nil
}
