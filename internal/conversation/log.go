// Package conversation holds the append-only message log of an agent run.
package conversation

import (
	"sync"

	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Log is an append-only sequence of messages. It also tracks tool
// invocations that have been requested but not yet answered.
type Log struct {
	mu         sync.RWMutex
	messages   []types.Message
	unanswered []string
}

// New creates a log seeded with the given messages.
func New(seed ...types.Message) *Log {
	l := &Log{messages: make([]types.Message, 0, len(seed)+8)}
	for _, msg := range seed {
		l.Append(msg)
	}
	return l
}

// Append adds messages to the end of the log.
func (l *Log) Append(msgs ...types.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range msgs {
		l.messages = append(l.messages, msg)

		switch msg.Role {
		case types.RoleAssistant:
			for _, req := range msg.ToolRequests {
				l.unanswered = append(l.unanswered, req.ID)
			}
		case types.RoleTool:
			l.markAnswered(msg.InvocationID)
		}
	}
}

func (l *Log) markAnswered(id string) {
	for i, pending := range l.unanswered {
		if pending == id {
			l.unanswered = append(l.unanswered[:i], l.unanswered[i+1:]...)
			return
		}
	}
}

// Messages returns a copy of the log.
func (l *Log) Messages() []types.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]types.Message, len(l.messages))
	copy(result, l.messages)
	return result
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Unanswered returns invocation ids still waiting for a tool message.
func (l *Log) Unanswered() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]string, len(l.unanswered))
	copy(result, l.unanswered)
	return result
}

// Last returns the most recent message.
func (l *Log) Last() (types.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.messages) == 0 {
		return types.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}
