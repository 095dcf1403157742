package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashutoshrp06/agentflow/internal/agent"
	"github.com/ashutoshrp06/agentflow/internal/assistant"
	"github.com/ashutoshrp06/agentflow/internal/types"
	"github.com/ashutoshrp06/agentflow/internal/ui"
)

func runInteractive(ctx context.Context) error {
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	coder, err := assistant.NewCoder(e.deps)
	if err != nil {
		return err
	}
	fmt.Printf("Workspace: %s\n\n", e.cfg.Agent.Workspace)

	session := coder.NewSession()
	if err := ui.Run(ui.Options{
		Process: session.ProcessQueryCmd,
		Reset:   session.Reset,
		Tools:   coder.Tools(),
	}); err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}

func runCoder(ctx context.Context, task string) error {
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	coder, err := assistant.NewCoder(e.deps)
	if err != nil {
		return err
	}
	return e.runAgent(ctx, coder, task)
}

type agentOutput struct {
	Answer    string           `json:"answer"`
	ToolCalls []toolCallOutput `json:"tool_calls"`
	Cycles    int              `json:"cycles"`
}

type toolCallOutput struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
	Success   bool   `json:"success"`
	Output    any    `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (e *env) runAgent(ctx context.Context, a *agent.Agent, task string) error {
	ctx, cancel := e.context(ctx)
	defer cancel()

	res, err := a.Run(ctx, task)
	if err != nil {
		return err
	}

	out := agentOutput{Answer: res.Text, Cycles: res.Cycles, ToolCalls: toolCalls(res.ToolCalls)}
	return e.emit(out, func() {
		e.printToolCalls(res.ToolCalls)
		e.text(res.Text)
	})
}

func toolCalls(calls []types.ToolCall) []toolCallOutput {
	out := make([]toolCallOutput, 0, len(calls))
	for _, c := range calls {
		tc := toolCallOutput{
			Name:    c.Request.Name,
			Success: c.Result.Success(),
			Error:   c.Result.Error,
		}
		if len(c.Request.Arguments) > 0 && json.Valid(c.Request.Arguments) {
			tc.Arguments = c.Request.Arguments
		}
		if tc.Success {
			tc.Output = c.Result.Payload
		}
		out = append(out, tc)
	}
	return out
}

func (e *env) printToolCalls(calls []types.ToolCall) {
	for _, c := range calls {
		label := fmt.Sprintf("%s %s", c.Request.Name, string(c.Request.Arguments))
		if !c.Result.Success() {
			label += ": " + c.Result.Error
		}
		e.status(c.Result.Success(), label)
	}
	if len(calls) > 0 {
		fmt.Fprintln(e.out)
	}
}
