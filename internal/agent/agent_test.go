package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/llm/llmtest"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/tools"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"", 5, ""},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc..."},
		{"héllo wörld", 7, "héllo w..."},
		{"日本語のテキスト", 3, "日本語..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if !utf8.ValidString(result) {
			t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.input, tt.maxLen, result)
		}
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestAgentState_String(t *testing.T) {
	tests := []struct {
		state    types.AgentState
		expected string
	}{
		{types.StateIdle, "Idle"},
		{types.StateAwaitingModel, "Awaiting model"},
		{types.StateExecutingTools, "Executing tools"},
		{types.StateDone, "Done"},
		{types.StateFailed, "Failed"},
		{types.AgentState(100), "Unknown"},
	}

	for _, tt := range tests {
		result := tt.state.String()
		if result != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q",
				tt.state, result, tt.expected)
		}
	}
}

type echoArgs struct {
	Text string `json:"text"`
}

// countingTools registers "echo" and "fail" and counts executions.
func countingTools(t *testing.T) (*tools.Registry, *int) {
	t.Helper()
	calls := 0
	registry := tools.NewRegistry()
	registry.MustRegister(
		tools.Must[echoArgs]("echo", "echoes text", func(_ context.Context, a echoArgs) (any, error) {
			calls++
			return map[string]string{"echo": a.Text}, nil
		}),
		tools.Must[echoArgs]("fail", "always fails", func(context.Context, echoArgs) (any, error) {
			calls++
			return nil, errors.New("tool exploded")
		}),
	)
	return registry, &calls
}

func call(id, name, args string) types.ToolInvocationRequest {
	return types.ToolInvocationRequest{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func newAgent(t *testing.T, gw *llmtest.Scripted, registry *tools.Registry, maxCycles int) *Agent {
	t.Helper()
	a, err := New(Config{
		Gateway:      gw,
		Tools:        registry,
		SystemPrompt: "You are a test agent.",
		MaxCycles:    maxCycles,
	})
	require.NoError(t, err)
	return a
}

// assertNoOrphans checks that every tool request is answered by exactly one
// tool message before the next assistant message.
func assertNoOrphans(t *testing.T, msgs []types.Message) {
	t.Helper()
	pending := map[string]bool{}
	for i, m := range msgs {
		switch m.Role {
		case types.RoleAssistant:
			require.Empty(t, pending, "assistant message %d sent with unanswered requests", i)
			for _, r := range m.ToolRequests {
				pending[r.ID] = true
			}
		case types.RoleTool:
			require.True(t, pending[m.InvocationID], "tool message %d answers unknown id %q", i, m.InvocationID)
			delete(pending, m.InvocationID)
		}
	}
	require.Empty(t, pending)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))

	_, err = New(Config{Gateway: llmtest.New(), MaxCycles: -1})
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
}

func TestRunFinalAnswerWithoutTools(t *testing.T) {
	gw := llmtest.New(llmtest.Text("Hello there."))
	a := newAgent(t, gw, nil, DefaultMaxCycles)

	res, err := a.Run(context.Background(), "say hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", res.Text)
	assert.Equal(t, 0, res.Cycles)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, types.RoleSystem, res.Messages[0].Role)
	assert.Equal(t, "say hi", res.Messages[1].Content)
	assert.Equal(t, types.RoleAssistant, res.Messages[2].Role)
}

func TestRunResolvesToolsInOrder(t *testing.T) {
	registry, calls := countingTools(t)
	gw := llmtest.New(
		llmtest.Tools(call("a", "echo", `{"text":"one"}`), call("b", "echo", `{"text":"two"}`)),
		llmtest.Tools(call("c", "fail", `{"text":"three"}`)),
		llmtest.Text("all done"),
	)
	a := newAgent(t, gw, registry, DefaultMaxCycles)

	res, err := a.Run(context.Background(), "use the tools")
	require.NoError(t, err)

	assert.Equal(t, "all done", res.Text)
	assert.Equal(t, 2, res.Cycles)
	assert.Equal(t, 3, *calls)
	assertNoOrphans(t, res.Messages)

	require.Len(t, res.ToolCalls, 3)
	assert.Equal(t, "a", res.ToolCalls[0].Result.InvocationID)
	assert.Equal(t, "b", res.ToolCalls[1].Result.InvocationID)
	assert.Equal(t, "tool exploded", res.ToolCalls[2].Result.Error)

	requests := gw.Requests()
	require.Len(t, requests, 3)
	assert.Len(t, requests[0].Tools, 2)

	second := requests[1].Messages
	require.Len(t, second, 5)
	assert.Equal(t, "a", second[3].InvocationID)
	assert.JSONEq(t, `{"echo":"one"}`, second[3].Content)
	assert.Equal(t, "b", second[4].InvocationID)

	third := requests[2].Messages
	assert.JSONEq(t, `{"error":"tool exploded"}`, third[len(third)-1].Content)
	assertNoOrphans(t, third)
}

func TestRunUnknownToolIsFedBack(t *testing.T) {
	gw := llmtest.New(
		llmtest.Tools(call("x", "does_not_exist", `{}`)),
		llmtest.Text("sorry"),
	)
	a := newAgent(t, gw, nil, DefaultMaxCycles)

	res, err := a.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Contains(t, res.ToolCalls[0].Result.Error, "unknown tool")
}

func TestRunCycleLimitZero(t *testing.T) {
	registry, calls := countingTools(t)
	gw := llmtest.New(llmtest.Tools(call("a", "echo", `{"text":"x"}`)), llmtest.Text("unreachable"))
	a := newAgent(t, gw, registry, 0)

	res, err := a.Run(context.Background(), "task")
	assert.Nil(t, res)
	assert.Equal(t, failure.KindCycleLimit, failure.KindOf(err))
	assert.Equal(t, 0, *calls)
	assert.Equal(t, 1, gw.Calls())
}

func TestRunCycleLimitExceeded(t *testing.T) {
	registry, calls := countingTools(t)
	gw := llmtest.New(
		llmtest.Tools(call("1", "echo", `{"text":"x"}`)),
		llmtest.Tools(call("2", "echo", `{"text":"x"}`)),
		llmtest.Tools(call("3", "echo", `{"text":"x"}`)),
	)
	a := newAgent(t, gw, registry, 2)

	_, err := a.Run(context.Background(), "loop forever")
	assert.Equal(t, failure.KindCycleLimit, failure.KindOf(err))
	assert.ErrorContains(t, err, "exceeded maximum of 2 tool cycles")
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 3, gw.Calls())
}

func TestRunPropagatesGatewayFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{"transport", failure.Transport("llm.complete", errors.New("connection refused")), failure.KindTransport},
		{"shape", failure.Shape("shape.x", "bad", nil), failure.KindShape},
		{"plain error becomes transport", errors.New("socket closed"), failure.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := llmtest.New(llmtest.Fail(tt.err))
			a := newAgent(t, gw, nil, DefaultMaxCycles)

			res, err := a.Run(context.Background(), "task")
			assert.Nil(t, res)
			assert.Equal(t, tt.want, failure.KindOf(err))
		})
	}
}

type report struct {
	Temperature float64 `json:"temperature"`
	Response    string  `json:"response"`
}

func TestRunAsValidatesOnlyFinalMessage(t *testing.T) {
	registry, _ := countingTools(t)
	out := shape.MustOf[report]("weather_report", "")

	gw := llmtest.New(
		llmtest.Tools(call("a", "echo", `{"text":"sf"}`)),
		llmtest.Text("```json\n{\"temperature\": 12.5, \"response\": \"Mild.\"}\n```"),
	)
	a := newAgent(t, gw, registry, DefaultMaxCycles)

	got, res, err := RunAs(context.Background(), a, "weather in SF?", out)
	require.NoError(t, err)
	assert.Equal(t, report{Temperature: 12.5, Response: "Mild."}, got)
	assert.Equal(t, 1, res.Cycles)

	for i, req := range gw.Requests() {
		assert.Same(t, out.Shape, req.Shape, "request %d must carry the shape", i)
	}
}

func TestRunShapedViolation(t *testing.T) {
	out := shape.MustOf[report]("weather_report", "")
	gw := llmtest.New(llmtest.Text("It is mild today."))
	a := newAgent(t, gw, nil, DefaultMaxCycles)

	_, _, err := RunAs(context.Background(), a, "weather?", out)
	assert.Equal(t, failure.KindShape, failure.KindOf(err))
}

func TestSessionKeepsHistory(t *testing.T) {
	registry, _ := countingTools(t)
	gw := llmtest.New(
		llmtest.Text("first answer"),
		llmtest.Tools(call("a", "echo", `{"text":"x"}`)),
		llmtest.Text("second answer"),
		llmtest.Text("after reset"),
	)
	session := newAgent(t, gw, registry, DefaultMaxCycles).NewSession()

	res, err := session.Send(context.Background(), "  first   question ")
	require.NoError(t, err)
	assert.Equal(t, "first answer", res.Text)

	res, err = session.Send(context.Background(), "second question")
	require.NoError(t, err)
	assert.Equal(t, "second answer", res.Text)

	history := session.History()
	require.Len(t, history, 7)
	assert.Equal(t, "first question", history[1].Content)
	assertNoOrphans(t, history)

	requests := gw.Requests()
	assert.Len(t, requests[1].Messages, 4, "second turn sees the first turn")

	session.Reset()
	assert.Len(t, session.History(), 1)
	_, err = session.Send(context.Background(), "again")
	require.NoError(t, err)
	assert.Len(t, gw.Requests()[3].Messages, 2)
}

func TestSessionFailedTurnKeepsHistory(t *testing.T) {
	gw := llmtest.New(
		llmtest.Text("ok"),
		llmtest.Fail(failure.Transport("llm.complete", errors.New("down"))),
	)
	session := newAgent(t, gw, nil, DefaultMaxCycles).NewSession()

	_, err := session.Send(context.Background(), "hello")
	require.NoError(t, err)

	_, err = session.Send(context.Background(), "are you there?")
	require.Error(t, err)
	assert.Len(t, session.History(), 3)

	_, err = session.Send(context.Background(), "   ")
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
}

func TestSessionProcessQueryCmd(t *testing.T) {
	registry, _ := countingTools(t)
	gw := llmtest.New(
		llmtest.Tools(call("a", "echo", `{"text":"x"}`)),
		llmtest.Text("done"),
	)
	session := newAgent(t, gw, registry, DefaultMaxCycles).NewSession()

	msg := session.ProcessQueryCmd("do it")()
	event, ok := msg.(types.AgentEvent)
	require.True(t, ok)
	assert.Equal(t, types.StateDone, event.State)
	assert.Equal(t, "done", event.FinalAnswer)
	assert.Equal(t, 1, event.Cycles)
	require.Len(t, event.ToolCalls, 1)
	assert.Equal(t, "echo", event.ToolCalls[0].Request.Name)

	msg = session.ProcessQueryCmd("again")()
	event = msg.(types.AgentEvent)
	assert.Equal(t, types.StateFailed, event.State)
	assert.Equal(t, failure.KindTransport, failure.KindOf(event.Error))
}

func TestSessionTurnUsesPerCallDeadlines(t *testing.T) {
	var deadlines []time.Duration
	gw := llm.GatewayFunc(func(ctx context.Context, req llm.Request) (llm.Completion, error) {
		d, ok := ctx.Deadline()
		require.True(t, ok, "gateway call should carry a deadline")
		deadlines = append(deadlines, time.Until(d))
		return llm.Completion{Text: "done"}, nil
	})
	a, err := New(Config{Gateway: gw, MaxCycles: 10, CallTimeout: 5 * time.Minute})
	require.NoError(t, err)

	event := a.NewSession().ProcessQueryCmd("take your time")().(types.AgentEvent)
	require.Equal(t, types.StateDone, event.State, "%v", event.Error)
	require.Len(t, deadlines, 1)
	assert.Greater(t, deadlines[0], 4*time.Minute)
}
