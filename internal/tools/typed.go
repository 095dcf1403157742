package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashutoshrp06/agentflow/internal/shape"
)

// Func is the handler of a typed tool.
type Func[A any] func(ctx context.Context, args A) (any, error)

type typedTool[A any] struct {
	name        string
	description string
	args        *shape.Shape
	fn          Func[A]
}

// New builds a tool whose argument schema is generated from A. Fields
// tagged omitempty are optional; `jsonschema` tags become descriptions.
func New[A any](name, description string, fn Func[A]) (Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: %s has no handler", ErrInvalidTool, name)
	}
	args, err := shape.ForArgs[A](name, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTool, name, err)
	}
	return &typedTool[A]{
		name:        name,
		description: description,
		args:        args,
		fn:          fn,
	}, nil
}

// Must is like New but panics on error.
func Must[A any](name, description string, fn Func[A]) Tool {
	t, err := New(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *typedTool[A]) Name() string                { return t.name }
func (t *typedTool[A]) Description() string         { return t.description }
func (t *typedTool[A]) InputSchema() map[string]any { return t.args.Schema() }

func (t *typedTool[A]) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := shape.Decode[A](t.args, raw)
	if err != nil {
		return nil, err
	}
	return t.fn(ctx, args)
}
