package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

type chatServer struct {
	srv      *httptest.Server
	hits     atomic.Int32
	lastBody map[string]any
}

func newChatServer(t *testing.T, status int, reply string) *chatServer {
	t.Helper()
	cs := &chatServer{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cs.lastBody = body

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, reply)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func newTestGateway(t *testing.T, baseURL string) *OpenAIGateway {
	t.Helper()
	g, err := NewOpenAIGateway(Config{BaseURL: baseURL, APIKey: "sk-test", Model: "test-model"})
	require.NoError(t, err)
	return g
}

func chatReply(message string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test-model",
		"choices":[{"index":0,"finish_reason":"stop","message":` + message + `}]}`
}

func TestCompleteToolRequests(t *testing.T) {
	cs := newChatServer(t, http.StatusOK, chatReply(`{"role":"assistant","content":null,"tool_calls":[
		{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"lat\":1,\"lon\":2}"}},
		{"id":"","type":"function","function":{"name":"search_kb","arguments":""}}
	]}`))
	g := newTestGateway(t, cs.srv.URL)

	prior := types.ToolInvocationRequest{ID: "call_0", Name: "list_files", Arguments: json.RawMessage(`{}`)}
	completion, err := g.Complete(context.Background(), Request{
		Messages: []types.Message{
			types.SystemMessage("be helpful"),
			types.UserMessage("weather?"),
			types.AssistantMessage("", prior),
			types.ToolMessage(types.ToolResult{InvocationID: "call_0", ToolName: "list_files", Payload: []string{"a"}}),
		},
		Tools: []types.ToolDeclaration{{
			Name:        "get_weather",
			Description: "Get weather",
			InputSchema: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	require.False(t, completion.IsFinal())
	require.Len(t, completion.ToolRequests, 2)
	assert.Equal(t, "call_1", completion.ToolRequests[0].ID)
	assert.Equal(t, "get_weather", completion.ToolRequests[0].Name)
	assert.JSONEq(t, `{"lat":1,"lon":2}`, string(completion.ToolRequests[0].Arguments))
	assert.NotEmpty(t, completion.ToolRequests[1].ID)
	assert.Equal(t, "{}", string(completion.ToolRequests[1].Arguments))

	assert.Equal(t, "test-model", cs.lastBody["model"])
	messages := cs.lastBody["messages"].([]any)
	require.Len(t, messages, 4)
	assistant := messages[2].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	assert.Equal(t, "call_0", calls[0].(map[string]any)["id"])
	tool := messages[3].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_0", tool["tool_call_id"])
	assert.Equal(t, `["a"]`, tool["content"])

	tools := cs.lastBody["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "get_weather", fn["name"])
	assert.NotContains(t, cs.lastBody, "response_format")
}

type verdict struct {
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
}

func TestCompleteShaped(t *testing.T) {
	out, err := shape.For[verdict]("verdict", "A verdict")
	require.NoError(t, err)

	cs := newChatServer(t, http.StatusOK, chatReply(`{"role":"assistant","content":"{\"valid\":true,\"confidence\":0.9}"}`))
	g := newTestGateway(t, cs.srv.URL)

	completion, err := g.Complete(context.Background(), Request{
		Messages: []types.Message{types.UserMessage("judge")},
		Shape:    out,
	})
	require.NoError(t, err)
	assert.True(t, completion.IsFinal())
	assert.Equal(t, map[string]any{"valid": true, "confidence": 0.9}, completion.Value)

	format := cs.lastBody["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "verdict", schema["name"])
	assert.Equal(t, true, schema["strict"])
	assert.NotContains(t, cs.lastBody, "tools")
}

func TestCompleteShapeViolation(t *testing.T) {
	out, err := shape.For[verdict]("verdict", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		reply string
	}{
		{"wrong type", `{"role":"assistant","content":"{\"valid\":\"yes\",\"confidence\":0.9}"}`},
		{"prose", `{"role":"assistant","content":"I think it is valid."}`},
		{"refusal", `{"role":"assistant","content":"","refusal":"I can't help with that."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := newChatServer(t, http.StatusOK, chatReply(tt.reply))
			_, err := newTestGateway(t, cs.srv.URL).Complete(context.Background(), Request{
				Messages: []types.Message{types.UserMessage("judge")},
				Shape:    out,
			})
			assert.Equal(t, failure.KindShape, failure.KindOf(err), "err = %v", err)
		})
	}
}

func TestCompleteTransportFailures(t *testing.T) {
	t.Run("server error is not retried", func(t *testing.T) {
		cs := newChatServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
		_, err := newTestGateway(t, cs.srv.URL).Complete(context.Background(), Request{
			Messages: []types.Message{types.UserMessage("hi")},
		})
		assert.Equal(t, failure.KindTransport, failure.KindOf(err))
		assert.ErrorContains(t, err, "status 500")
		assert.Equal(t, int32(1), cs.hits.Load())
	})

	t.Run("no choices", func(t *testing.T) {
		cs := newChatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
		_, err := newTestGateway(t, cs.srv.URL).Complete(context.Background(), Request{
			Messages: []types.Message{types.UserMessage("hi")},
		})
		assert.Equal(t, failure.KindTransport, failure.KindOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestGateway(t, url).Complete(context.Background(), Request{
			Messages: []types.Message{types.UserMessage("hi")},
		})
		assert.Equal(t, failure.KindTransport, failure.KindOf(err))
	})
}

func TestNewOpenAIGatewayRequiresModel(t *testing.T) {
	_, err := NewOpenAIGateway(Config{})
	assert.Equal(t, failure.KindConfiguration, failure.KindOf(err))
}

func TestFinalizeSkipsToolRequests(t *testing.T) {
	out, err := shape.For[verdict]("verdict", "")
	require.NoError(t, err)

	c := Completion{ToolRequests: []types.ToolInvocationRequest{{ID: "1", Name: "x"}}}
	got, err := Finalize(Request{Shape: out}, c)
	require.NoError(t, err)
	assert.Nil(t, got.Value)
}
