// Package agent implements the tool-resolution loop: the conversation is sent
// to the model, requested tools are executed and their results appended, and
// the cycle repeats until the model produces a final answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/conversation"
	"github.com/ashutoshrp06/agentflow/internal/executor"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/tools"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// DefaultMaxCycles is the cycle limit used by the CLI.
const DefaultMaxCycles = 10

// Agent runs tasks against a gateway with a fixed tool set. It holds no
// per-run state and is safe for concurrent use.
type Agent struct {
	gateway      llm.Gateway
	registry     *tools.Registry
	executor     *executor.Executor
	declarations []types.ToolDeclaration
	systemPrompt string
	maxCycles    int
	callTimeout  time.Duration
	logger       *zap.Logger
}

// Config holds agent configuration.
type Config struct {
	Gateway      llm.Gateway
	Tools        *tools.Registry
	SystemPrompt string

	// MaxCycles bounds the number of tool-execution cycles per run. Zero
	// allows none: the first tool request fails the run.
	MaxCycles int

	// ToolTimeout bounds each tool call, CallTimeout each gateway call.
	// Zero leaves them bounded only by the caller's context.
	ToolTimeout time.Duration
	CallTimeout time.Duration

	Logger *zap.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	Text  string

	// Value is the validated structure for shaped runs.
	Value any

	Messages  []types.Message
	ToolCalls []types.ToolCall
	Cycles    int
}

// New creates an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Gateway == nil {
		return nil, failure.New(failure.KindConfiguration, "agent.new", "gateway is required")
	}
	if cfg.MaxCycles < 0 {
		return nil, failure.New(failure.KindConfiguration, "agent.new",
			fmt.Sprintf("max cycles must not be negative, got %d", cfg.MaxCycles))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}

	return &Agent{
		gateway:      cfg.Gateway,
		registry:     cfg.Tools,
		executor:     executor.NewExecutor(cfg.Tools, cfg.ToolTimeout, cfg.Logger),
		declarations: cfg.Tools.Declarations(),
		systemPrompt: cfg.SystemPrompt,
		maxCycles:    cfg.MaxCycles,
		callTimeout:  cfg.CallTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Run executes task in a fresh conversation.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	return a.run(ctx, a.seed(task), nil)
}

// RunShaped executes task and requires the final answer to conform to out.
// Tool requests are still allowed along the way; only the final message is
// validated.
func (a *Agent) RunShaped(ctx context.Context, task string, out *shape.Shape) (*Result, error) {
	return a.run(ctx, a.seed(task), out)
}

// RunAs executes a shaped run and decodes the final answer into T.
func RunAs[T any](ctx context.Context, a *Agent, task string, out shape.Typed[T]) (T, *Result, error) {
	var zero T
	res, err := a.RunShaped(ctx, task, out.Shape)
	if err != nil {
		return zero, nil, err
	}
	v, err := out.Parse([]byte(res.Text))
	if err != nil {
		return zero, nil, err
	}
	return v, res, nil
}

// Tools returns the declarations offered to the model.
func (a *Agent) Tools() []types.ToolDeclaration {
	out := make([]types.ToolDeclaration, len(a.declarations))
	copy(out, a.declarations)
	return out
}

// MaxCycles returns the configured cycle limit.
func (a *Agent) MaxCycles() int {
	return a.maxCycles
}

func (a *Agent) seed(task string) *conversation.Log {
	return conversation.New(a.seedMessages(task)...)
}

func (a *Agent) seedMessages(task string) []types.Message {
	msgs := make([]types.Message, 0, 2)
	if a.systemPrompt != "" {
		msgs = append(msgs, types.SystemMessage(a.systemPrompt))
	}
	return append(msgs, types.UserMessage(task))
}

// run drives log until the model answers. log must end with a user message.
func (a *Agent) run(ctx context.Context, log *conversation.Log, out *shape.Shape) (*Result, error) {
	const op = "agent.run"

	res := &Result{RunID: uuid.NewString()}
	logger := a.logger.With(zap.String("run_id", res.RunID))
	state := types.StateAwaitingModel

	fail := func(err error) (*Result, error) {
		state = types.StateFailed
		kind, msg := failure.Describe(err)
		logger.Warn("Run failed",
			zap.Stringer("state", state),
			zap.String("kind", string(kind)),
			zap.String("message", msg),
			zap.Int("cycles", res.Cycles))
		return nil, err
	}

	logger.Info("Run started",
		zap.Int("tools", len(a.declarations)),
		zap.Int("max_cycles", a.maxCycles),
		zap.Bool("shaped", out != nil))

	for {
		if pending := log.Unanswered(); len(pending) > 0 {
			return fail(failure.New(failure.KindInternal, op,
				"unanswered tool invocations: "+strings.Join(pending, ", ")))
		}

		completion, err := a.complete(ctx, llm.Request{
			Messages: log.Messages(),
			Tools:    a.declarations,
			Shape:    out,
		})
		if err != nil {
			return fail(err)
		}

		if completion.IsFinal() {
			log.Append(types.AssistantMessage(completion.Text))
			state = types.StateDone

			res.Text = completion.Text
			res.Value = completion.Value
			res.Messages = log.Messages()
			logger.Info("Run completed",
				zap.Stringer("state", state),
				zap.Int("cycles", res.Cycles),
				zap.Int("tool_calls", len(res.ToolCalls)),
				zap.String("answer", truncate(res.Text, 200)))
			return res, nil
		}

		if res.Cycles >= a.maxCycles {
			return fail(failure.CycleLimit(op, a.maxCycles))
		}
		res.Cycles++

		log.Append(types.AssistantMessage(completion.Text, completion.ToolRequests...))
		state = types.StateExecutingTools
		logger.Debug("Executing tool requests",
			zap.Stringer("state", state),
			zap.Int("cycle", res.Cycles),
			zap.Int("requests", len(completion.ToolRequests)))

		results := a.executor.Execute(ctx, completion.ToolRequests)
		for i, result := range results {
			log.Append(types.ToolMessage(result))
			res.ToolCalls = append(res.ToolCalls, types.ToolCall{
				Request: completion.ToolRequests[i],
				Result:  result,
			})
		}
		state = types.StateAwaitingModel
	}
}

func (a *Agent) complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	completion, err := a.gateway.Complete(ctx, req)
	if err != nil {
		var fe *failure.Error
		if !errors.As(err, &fe) {
			err = failure.Transport("agent.complete", err)
		}
		return llm.Completion{}, err
	}
	return completion, nil
}

// truncate truncates a string to maxLen characters.
// truncate cuts s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
