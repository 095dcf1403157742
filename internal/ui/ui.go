// Package ui provides the interactive terminal front end using Bubble Tea.
package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

const maxToolOutput = 300

// Options wires the model to a running agent session.
type Options struct {
	// Process runs one turn and eventually yields a types.AgentEvent.
	Process func(query string) tea.Cmd
	// Reset drops the conversation history. Optional.
	Reset func()
	// Tools are listed by the tools command.
	Tools []types.ToolDeclaration
}

// Model is the Bubble Tea model for the coding assistant chat.
type Model struct {
	textInput textinput.Model
	spinner   spinner.Model
	viewport  viewport.Model
	styles    Styles

	state    types.AgentState
	messages []chatMessage
	width    int
	height   int
	ready    bool
	quitting bool
	err      error

	opts Options
}

type chatMessage struct {
	role    types.Role
	content string
	tool    *types.ToolCall
}

// NewModel creates a new UI model.
func NewModel(opts Options) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask about the workspace... (e.g., 'Add a README describing the project layout')"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80
	ti.TextStyle = styles.Input

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.DefaultKeyMap()

	return Model{
		textInput: ti,
		spinner:   s,
		viewport:  vp,
		styles:    styles,
		state:     types.StateIdle,
		opts:      opts,
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) busy() bool {
	return m.state == types.StateAwaitingModel || m.state == types.StateExecutingTools
}

func (m Model) headerHeight() int {
	return lipgloss.Height(m.styles.BannerTitle.Render(Banner())) + 2
}

// footerHeight covers the blank line, the prompt and the help bar.
func (m Model) footerHeight() int {
	return 4
}

func (m *Model) updateViewport() {
	var b strings.Builder
	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.busy() {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if !m.busy() {
				m.quitting = true
				return m, tea.Quit
			}
			// The running turn keeps going; its event is dropped on arrival.
			m.state = types.StateIdle
			m.updateViewport()
			return m, nil

		case tea.KeyEnter:
			if m.busy() {
				return m, nil
			}
			query := strings.TrimSpace(m.textInput.Value())
			if query == "" {
				return m, nil
			}
			if handled, cmd := m.handleCommand(query); handled {
				m.textInput.SetValue("")
				m.updateViewport()
				return m, cmd
			}

			m.messages = append(m.messages, chatMessage{role: types.RoleUser, content: query})
			m.textInput.SetValue("")
			m.state = types.StateAwaitingModel
			m.updateViewport()

			if m.opts.Process != nil {
				cmds = append(cmds, m.opts.Process(query))
			}
			cmds = append(cmds, m.spinner.Tick)
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10

		vpHeight := max(msg.Height-m.headerHeight()-m.footerHeight(), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.viewport.KeyMap = viewport.DefaultKeyMap()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.ready = true
		m.updateViewport()

	case types.AgentEvent:
		if !m.busy() {
			return m, nil
		}
		m = m.handleAgentEvent(msg)
		m.updateViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.updateViewport()
	}

	if !m.busy() {
		var tiCmd tea.Cmd
		m.textInput, tiCmd = m.textInput.Update(msg)
		cmds = append(cmds, tiCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleCommand reports whether input was a built-in command.
func (m *Model) handleCommand(input string) (bool, tea.Cmd) {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		m.quitting = true
		return true, tea.Quit

	case "clear":
		m.messages = nil
		if m.opts.Reset != nil {
			m.opts.Reset()
		}
		return true, nil

	case "help", "?":
		m.system(`Available commands:
  help, ?     Show this help
  clear       Clear the conversation
  tools       List the tools the assistant can use
  exit, quit  Leave

Example requests:
  "List the Go files in the workspace"
  "Create notes/todo.md with a checklist for the release"
  "Rename the function Foo in main.go to Bar"`)
		return true, nil

	case "tools":
		m.system(m.toolsText())
		return true, nil
	}
	return false, nil
}

func (m *Model) system(content string) {
	m.messages = append(m.messages, chatMessage{role: types.RoleSystem, content: content})
}

func (m Model) toolsText() string {
	if len(m.opts.Tools) == 0 {
		return "No tools are registered."
	}
	decls := append([]types.ToolDeclaration(nil), m.opts.Tools...)
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })

	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, d := range decls {
		fmt.Fprintf(&b, "  %-18s %s\n", d.Name, d.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) handleAgentEvent(event types.AgentEvent) Model {
	switch event.State {
	case types.StateDone:
		for i := range event.ToolCalls {
			m.messages = append(m.messages, chatMessage{role: types.RoleTool, tool: &event.ToolCalls[i]})
		}
		if event.FinalAnswer != "" {
			m.messages = append(m.messages, chatMessage{role: types.RoleAssistant, content: event.FinalAnswer})
		}
		m.err = nil
		m.state = types.StateIdle

	case types.StateFailed:
		m.err = event.Error
		m.system(errorText(event.Error))
		m.state = types.StateIdle

	default:
		m.state = event.State
	}
	return m
}

func errorText(err error) string {
	if err == nil {
		return "Error: the turn failed without a reason"
	}
	kind, msg := failure.Describe(err)
	if kind == failure.KindUnknown {
		return fmt.Sprintf("Error: %s: %s", kind, msg)
	}
	return "Error: " + msg
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return m.styles.SystemMessage.Render("Goodbye!\n")
	}
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.styles.BannerTitle.Render(Banner()))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.styles.Prompt.Render("> "))
	if m.busy() {
		b.WriteString(m.styles.StatusText.Render("(working...)"))
	} else {
		b.WriteString(m.textInput.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())

	return m.styles.App.Render(b.String())
}

func (m Model) renderMessage(msg chatMessage) string {
	switch msg.role {
	case types.RoleUser:
		return m.styles.UserMessage.Render("You: " + msg.content)
	case types.RoleAssistant:
		return m.styles.AssistantMessage.Render("Assistant: " + msg.content)
	case types.RoleSystem:
		return m.styles.SystemMessage.Render(msg.content)
	case types.RoleTool:
		if msg.tool != nil {
			return m.renderToolCall(*msg.tool)
		}
	}
	return ""
}

func (m Model) renderToolCall(call types.ToolCall) string {
	var b strings.Builder

	b.WriteString(m.styles.ToolName.Render("Tool: " + call.Request.Name))
	if args := compactArgs(call.Request.Arguments); args != "" {
		b.WriteString(" ")
		b.WriteString(m.styles.ToolParams.Render(args))
	}
	b.WriteString("\n")

	if !call.Result.Success() {
		b.WriteString(m.styles.ToolError.Render("  Failed: " + call.Result.Error))
		b.WriteString("\n")
		return m.styles.ToolBox.Render(b.String())
	}

	b.WriteString(m.styles.ToolSuccess.Render("  Success"))
	if d := call.Result.Duration; d > 0 {
		b.WriteString(m.styles.ToolParams.Render(fmt.Sprintf(" (%s)", d.Round(time.Millisecond))))
	}
	b.WriteString("\n")

	output := call.Result.Content()
	if len(output) > maxToolOutput {
		output = output[:maxToolOutput] + "..."
	}
	for _, line := range strings.Split(output, "\n") {
		if line != "" {
			b.WriteString(m.styles.ToolOutput.Render("  | " + line))
			b.WriteString("\n")
		}
	}
	return m.styles.ToolBox.Render(b.String())
}

// compactArgs renders raw JSON arguments on one line.
func compactArgs(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if obj, ok := v.(map[string]any); ok && len(obj) == 0 {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(data)
}

func (m Model) renderStatus() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), m.styles.StateLabel.Render(m.state.String()+"..."))
}

func (m Model) renderHelpBar() string {
	help := []string{
		m.styles.HelpKey.Render("enter") + m.styles.HelpValue.Render(" send"),
		m.styles.HelpKey.Render("ctrl+c") + m.styles.HelpValue.Render(" quit"),
		m.styles.HelpKey.Render("help") + m.styles.HelpValue.Render(" commands"),
		m.styles.HelpKey.Render("tools") + m.styles.HelpValue.Render(" list tools"),
	}
	return m.styles.HelpBar.Render(strings.Join(help, "  |  "))
}
