package types

import (
	"encoding/json"
	"testing"
)

func TestAgentStateString(t *testing.T) {
	tests := []struct {
		state AgentState
		want  string
	}{
		{StateIdle, "Idle"},
		{StateAwaitingModel, "Awaiting model"},
		{StateExecutingTools, "Executing tools"},
		{StateDone, "Done"},
		{StateFailed, "Failed"},
		{AgentState(42), "Unknown"},
		{AgentState(-1), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("AgentState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestAgentStateTerminal(t *testing.T) {
	if StateAwaitingModel.Terminal() || StateExecutingTools.Terminal() {
		t.Error("non-terminal state reported as terminal")
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Error("terminal state reported as non-terminal")
	}
}

func TestToolResultContent(t *testing.T) {
	ok := ToolResult{InvocationID: "call_1", Payload: map[string]any{"content": "hi"}}
	if !ok.Success() {
		t.Fatal("expected success")
	}
	if got := ok.Content(); got != `{"content":"hi"}` {
		t.Errorf("Content() = %s", got)
	}

	failed := ToolResult{InvocationID: "call_2", Error: "boom"}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(failed.Content()), &decoded); err != nil {
		t.Fatalf("error content is not JSON: %v", err)
	}
	if decoded["error"] != "boom" {
		t.Errorf("error = %q, want boom", decoded["error"])
	}

	unserializable := ToolResult{Payload: make(chan int)}
	if err := json.Unmarshal([]byte(unserializable.Content()), &decoded); err != nil {
		t.Fatalf("fallback content is not JSON: %v", err)
	}
}

func TestToolMessageCarriesInvocationID(t *testing.T) {
	msg := ToolMessage(ToolResult{InvocationID: "call_9", Payload: "done"})
	if msg.Role != RoleTool {
		t.Errorf("role = %s, want tool", msg.Role)
	}
	if msg.InvocationID != "call_9" {
		t.Errorf("invocation id = %q", msg.InvocationID)
	}
	if msg.Content != `"done"` {
		t.Errorf("content = %s", msg.Content)
	}
}
