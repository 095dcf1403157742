package agent

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashutoshrp06/agentflow/internal/conversation"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/types"
	"github.com/ashutoshrp06/agentflow/internal/validator"
)

// Session keeps one conversation across several user turns, as in the
// interactive assistant. Turns are serialised.
type Session struct {
	agent     *Agent
	validator *validator.InputValidator

	mu  sync.Mutex
	log *conversation.Log
}

// NewSession starts an empty session.
func (a *Agent) NewSession() *Session {
	s := &Session{
		agent:     a,
		validator: validator.NewInputValidator(),
	}
	s.Reset()
	return s
}

// Agent returns the agent the session runs on.
func (s *Session) Agent() *Agent {
	return s.agent
}

// Send validates query, appends it to the conversation and runs the loop.
// A failed turn leaves the earlier conversation intact.
func (s *Session) Send(ctx context.Context, query string) (*Result, error) {
	if err := s.validator.Validate(query); err != nil {
		return nil, failure.Wrap(failure.KindInvalidInput, "agent.session", err)
	}
	query = s.validator.Sanitize(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	work := conversation.New(s.log.Messages()...)
	work.Append(types.UserMessage(query))

	res, err := s.agent.run(ctx, work, nil)
	if err != nil {
		return nil, err
	}
	s.log = conversation.New(res.Messages...)
	return res, nil
}

// ProcessQueryCmd returns a Bubble Tea command that runs one turn. The turn
// has no overall deadline; gateway and tool calls carry their own timeouts
// and the cycle limit bounds how many there are.
func (s *Session) ProcessQueryCmd(query string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Send(context.Background(), query)
		if err != nil {
			return types.AgentEvent{
				State: types.StateFailed,
				Error: err,
			}
		}
		return types.AgentEvent{
			State:       types.StateDone,
			ToolCalls:   res.ToolCalls,
			FinalAnswer: res.Text,
			Cycles:      res.Cycles,
		}
	}
}

// History returns the conversation so far.
func (s *Session) History() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Messages()
}

// Reset clears the conversation, keeping the system prompt.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seed []types.Message
	if s.agent.systemPrompt != "" {
		seed = append(seed, types.SystemMessage(s.agent.systemPrompt))
	}
	s.log = conversation.New(seed...)
}
