// Package tui is the terminal front end: a name form followed by the chat
// panel, driven by a chat.Session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/stomp-chat/chat"
)

// Controller is the part of chat.Session the UI drives.
type Controller interface {
	Connect(ctx context.Context, name string) error
	Send(text string) error
	Resume(ctx context.Context) error
}

type page int

const (
	pageForm page = iota
	pageChat
)

type (
	showChatMsg      struct{ username string }
	connectedMsg     struct{}
	connectFailedMsg struct{ text string }
	onlineMsg        bool
	entryMsg         chat.Entry
	actionErrMsg     struct{ err error }
)

// Model is the bubbletea model. Session calls are always issued from
// commands because the session reports back into the running program.
type Model struct {
	ctx context.Context
	ctl Controller

	page     page
	name     textinput.Model
	input    textinput.Model
	viewport viewport.Model
	lines    []string

	username   string
	connecting string
	failed     bool
	online     bool
	pending    bool
	notice     string

	width, height int
}

func NewModel(ctx context.Context, ctl Controller, username string) Model {
	name := textinput.New()
	name.Placeholder = "Username"
	name.CharLimit = 100
	name.SetValue(username)
	name.Focus()

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = maxTextLen

	return Model{
		ctx:        ctx,
		ctl:        ctl,
		name:       name,
		input:      input,
		viewport:   viewport.New(80, 20),
		connecting: "Connecting...",
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			return m, m.resume()
		case tea.KeyEnter:
			return m.submit()
		}
	case tea.FocusMsg:
		return m, m.resume()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case showChatMsg:
		m.page = pageChat
		m.pending = false
		m.username = msg.username
		m.name.Blur()
		focus := m.input.Focus()
		return m, tea.Batch(focus, tea.SetWindowTitle("Chat - "+msg.username))
	case connectedMsg:
		m.connecting = ""
		m.failed = false
		m.notice = ""
		return m, nil
	case connectFailedMsg:
		m.connecting = msg.text
		m.failed = true
		return m, nil
	case onlineMsg:
		m.online = bool(msg)
		return m, nil
	case entryMsg:
		m.lines = append(m.lines, FormatEntry(chat.Entry(msg)))
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		return m, nil
	case actionErrMsg:
		m.pending = false
		m.notice = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	if m.page == pageForm {
		m.name, cmd = m.name.Update(msg)
		return m, cmd
	}
	var vpCmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, vpCmd)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.page == pageForm {
		name := strings.TrimSpace(m.name.Value())
		if name == "" || m.pending {
			return m, nil
		}
		m.pending = true
		m.notice = ""
		ctl, ctx := m.ctl, m.ctx
		return m, func() tea.Msg {
			if err := ctl.Connect(ctx, name); err != nil {
				return actionErrMsg{err}
			}
			return nil
		}
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.SetValue("")
	ctl := m.ctl
	return m, func() tea.Msg {
		if err := ctl.Send(text); err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

func (m Model) resume() tea.Cmd {
	if m.page != pageChat {
		return nil
	}
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		if err := ctl.Resume(ctx); err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

func (m *Model) layout() {
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-6, 3)
	m.input.Width = max(m.width-4, 10)
	m.name.Width = max(m.width-4, 10)
}

func (m Model) View() string {
	var b strings.Builder
	if m.page == pageForm {
		b.WriteString(titleStyle.Render("Type your username to enter the chatroom"))
		b.WriteString("\n\n")
		b.WriteString(m.name.View())
		b.WriteString("\n\n")
		if m.notice != "" {
			b.WriteString(errorStyle.Render(m.notice))
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render("enter to start chatting · esc to quit"))
		return b.String()
	}

	b.WriteString(titleStyle.Render(m.username))
	b.WriteString("  ")
	b.WriteString(statusLine(m.online))
	b.WriteString("\n")
	if m.connecting != "" {
		style := mutedStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString(style.Render(m.connecting))
		b.WriteString("\n")
	}
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("enter to send · ctrl+r to reconnect · esc to quit"))
	return b.String()
}
