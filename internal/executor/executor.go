// Package executor runs the tool invocations requested in one assistant turn.
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Invoker runs a single tool invocation. It must always return a result;
// failures are reported in ToolResult.Error. *tools.Registry satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, req types.ToolInvocationRequest) types.ToolResult
}

type Executor struct {
	invoker Invoker
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an executor. A zero timeout leaves calls bounded only
// by the parent context.
func NewExecutor(invoker Invoker, timeout time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		invoker: invoker,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute runs reqs one after another in the order received and returns one
// result per request, in the same order.
func (e *Executor) Execute(ctx context.Context, reqs []types.ToolInvocationRequest) []types.ToolResult {
	results := make([]types.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, e.executeOne(ctx, req))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, req types.ToolInvocationRequest) types.ToolResult {
	e.logger.Info("Executing tool",
		zap.String("tool", req.Name),
		zap.String("invocation_id", req.ID))

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result := e.invoker.Invoke(callCtx, req)
	result.InvocationID = req.ID
	result.ToolName = req.Name

	if !result.Success() {
		e.logger.Warn("Tool returned an error",
			zap.String("tool", req.Name),
			zap.String("invocation_id", req.ID),
			zap.Duration("duration", result.Duration),
			zap.String("error", result.Error))
		return result
	}

	e.logger.Debug("Tool completed",
		zap.String("tool", req.Name),
		zap.String("invocation_id", req.ID),
		zap.Duration("duration", result.Duration))
	return result
}
