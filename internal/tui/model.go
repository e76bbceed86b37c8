// Package tui is a terminal front end for a chat session, built on the
// chatstate controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	metaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	assistantStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("118"))
	suggestionStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("246"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

const resetCommand = "/reset"

// Controller is the part of *chatstate.Controller the model drives.
type Controller interface {
	Send(ctx context.Context, message string) (*assistant.AssistantResponse, error)
	Reset(ctx context.Context) error
	Snapshot() chatstate.Snapshot
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
	roleInfo
)

type entry struct {
	role role
	text string
	hint string
}

type replyMsg struct {
	resp *assistant.AssistantResponse
	err  error
	snap chatstate.Snapshot
}

type resetMsg struct {
	err  error
	snap chatstate.Snapshot
}

// Model is the bubbletea model for an interactive chat.
type Model struct {
	ctx        context.Context
	ctrl       Controller
	input      textinput.Model
	snap       chatstate.Snapshot
	transcript []entry
	width      int
}

// New returns a model bound to ctrl. ctx bounds every backend call the
// model makes.
func New(ctx context.Context, ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = assistant.DefaultQuestion
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Focus()

	return Model{
		ctx:   ctx,
		ctrl:  ctrl,
		input: ti,
		snap:  ctrl.Snapshot(),
	}
}

// Run starts an interactive program over ctrl and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, ctrl), opts...).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			return m.reset()
		case tea.KeyEnter:
			return m.submit()
		}

	case replyMsg:
		m.snap = msg.snap
		switch {
		case msg.resp != nil:
			m.transcript = append(m.transcript, entry{role: roleAssistant, text: msg.resp.Answer, hint: msg.resp.Suggestion})
			if msg.err != nil {
				m.transcript = append(m.transcript, entry{role: roleError, text: msg.err.Error()})
			}
		case msg.err != nil:
			m.transcript = append(m.transcript, entry{role: roleError, text: msg.err.Error()})
		}
		return m, nil

	case resetMsg:
		m.snap = msg.snap
		if msg.err != nil {
			m.transcript = append(m.transcript, entry{role: roleError, text: msg.err.Error()})
		} else {
			m.transcript = append(m.transcript, entry{role: roleInfo, text: "conversation reset"})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.snap.Loading {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	if text == resetCommand {
		return m.reset()
	}

	m.transcript = append(m.transcript, entry{role: roleUser, text: text})
	m.snap.Loading = true

	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		resp, err := ctrl.Send(ctx, text)
		return replyMsg{resp: resp, err: err, snap: ctrl.Snapshot()}
	}
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	if m.snap.Loading {
		return m, nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return m, func() tea.Msg {
		err := ctrl.Reset(ctx)
		return resetMsg{err: err, snap: ctrl.Snapshot()}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Campus Assistant"))
	b.WriteString("\n")
	thread := m.snap.ThreadID
	if thread == "" {
		thread = "new conversation"
	}
	b.WriteString(metaStyle.Render(fmt.Sprintf("user %s · thread %s", m.snap.UserID, thread)))
	b.WriteString("\n\n")

	for _, e := range m.transcript {
		switch e.role {
		case roleUser:
			b.WriteString(userStyle.Render("you: ") + e.text)
		case roleAssistant:
			b.WriteString(assistantStyle.Render("assistant: ") + e.text)
			if e.hint != "" {
				b.WriteString("\n  " + suggestionStyle.Render(e.hint))
			}
		case roleError:
			b.WriteString(errorStyle.Render("error: " + e.text))
		case roleInfo:
			b.WriteString(metaStyle.Render(e.text))
		}
		b.WriteString("\n")
	}

	if m.snap.Loading {
		b.WriteString(metaStyle.Render("thinking…"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(metaStyle.Render("enter send · ctrl+r or /reset new conversation · esc quit"))
	b.WriteString("\n")
	return b.String()
}
