// Package types defines shared data structures for agentflow.
package types

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolRequests is only set on assistant messages that ask for tools.
	ToolRequests []ToolInvocationRequest `json:"tool_requests,omitempty"`

	// InvocationID is only set on tool messages and correlates the result
	// with the request that produced it.
	InvocationID string `json:"invocation_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantMessage builds an assistant message, optionally carrying tool requests.
func AssistantMessage(content string, requests ...ToolInvocationRequest) Message {
	return Message{
		Role:         RoleAssistant,
		Content:      content,
		ToolRequests: requests,
		Timestamp:    time.Now(),
	}
}

// ToolMessage builds the tool-role message that answers one invocation.
func ToolMessage(result ToolResult) Message {
	return Message{
		Role:         RoleTool,
		Content:      result.Content(),
		InvocationID: result.InvocationID,
		Timestamp:    time.Now(),
	}
}

// ToolDeclaration describes a tool to the model.
type ToolDeclaration struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"input_schema" yaml:"input_schema"`
}

// ToolInvocationRequest is a model's request to run one tool.
type ToolInvocationRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of one tool invocation. Exactly one of Payload
// and Error is meaningful.
type ToolResult struct {
	InvocationID string        `json:"invocation_id"`
	ToolName     string        `json:"tool_name"`
	Payload      any           `json:"payload,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Success reports whether the tool produced a payload.
func (r ToolResult) Success() bool {
	return r.Error == ""
}

// Content renders the result as the JSON text fed back to the model.
func (r ToolResult) Content() string {
	var v any = r.Payload
	if !r.Success() {
		v = map[string]string{"error": r.Error}
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "unserializable tool output: " + err.Error()})
	}
	return string(data)
}

// AgentState represents the current state of agent processing.
type AgentState int

const (
	StateIdle AgentState = iota
	StateAwaitingModel
	StateExecutingTools
	StateDone
	StateFailed
)

// String returns a human-readable state name.
func (s AgentState) String() string {
	names := [...]string{
		"Idle",
		"Awaiting model",
		"Executing tools",
		"Done",
		"Failed",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transitions can happen.
func (s AgentState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ToolCall pairs a request with its result for display.
type ToolCall struct {
	Request ToolInvocationRequest
	Result  ToolResult
}

// AgentEvent is sent when a run finishes to update the UI.
type AgentEvent struct {
	State       AgentState
	Message     string
	ToolCalls   []ToolCall
	FinalAnswer string
	Cycles      int
	Error       error
}
