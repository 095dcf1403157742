// Package tools provides the tool registry used by the agent loop.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Sentinel errors for the registry. Use errors.Is to check.
var (
	ErrToolNotFound  = errors.New("unknown tool")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrInvalidTool   = errors.New("invalid tool")
)

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// InputSchema returns the JSON schema of the arguments object.
	InputSchema() map[string]any

	// Execute runs the tool. Arguments have already been validated against
	// InputSchema when called through a Registry.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type entry struct {
	tool Tool
	args *shape.Shape
}

// Registry maps tool names to handlers. It is safe for concurrent use and is
// normally populated once at startup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", ErrInvalidTool)
	}

	args, err := shape.New(name, tool.Description(), tool.InputSchema())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTool, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}

	r.tools[name] = entry{tool: tool, args: args}
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds tools to the registry, panicking on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.tools[name]
	return e.tool, exists
}

// List returns tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Declarations returns the tool declarations in registration order.
func (r *Registry) Declarations() []types.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]types.ToolDeclaration, 0, len(r.order))
	for _, name := range r.order {
		e := r.tools[name]
		decls = append(decls, types.ToolDeclaration{
			Name:        name,
			Description: e.tool.Description(),
			InputSchema: e.args.Schema(),
		})
	}
	return decls
}

// Invoke runs the requested tool and never returns an error: unknown tools,
// invalid arguments, tool failures and panics are all reported in the
// returned result.
func (r *Registry) Invoke(ctx context.Context, req types.ToolInvocationRequest) (result types.ToolResult) {
	start := time.Now()
	result = types.ToolResult{
		InvocationID: req.ID,
		ToolName:     req.Name,
	}
	defer func() {
		if p := recover(); p != nil {
			result.Payload = nil
			result.Error = fmt.Sprintf("tool panicked: %v", p)
		}
		result.Duration = time.Since(start)
	}()

	r.mu.RLock()
	e, exists := r.tools[req.Name]
	r.mu.RUnlock()
	if !exists {
		result.Error = fmt.Sprintf("%v: %s", ErrToolNotFound, req.Name)
		return result
	}

	args := req.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if _, err := e.args.Validate(args); err != nil {
		result.Error = fmt.Sprintf("invalid arguments for %s: %v", req.Name, err)
		return result
	}

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Sprintf("tool %s not started: %v", req.Name, err)
		return result
	}

	payload, err := e.tool.Execute(ctx, args)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Payload = payload
	return result
}
