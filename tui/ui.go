package tui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gosuda/stomp-chat/chat"
)

// UI runs the terminal program and doubles as the session's chat.View.
type UI struct {
	ctx     context.Context
	model   Model
	opts    []tea.ProgramOption
	program atomic.Pointer[tea.Program]
}

var _ chat.View = (*UI)(nil)

// New prepares the UI; username pre-fills the name form.
func New(ctx context.Context, username string, opts ...tea.ProgramOption) *UI {
	return &UI{
		ctx:   ctx,
		model: NewModel(ctx, nil, username),
		opts:  opts,
	}
}

// Bind attaches the controller that handles form submissions. It must be
// called before Run.
func (u *UI) Bind(ctl Controller) {
	u.model.ctl = ctl
}

// Run blocks until the user quits or the context is cancelled.
func (u *UI) Run() error {
	opts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(u.ctx),
	}, u.opts...)
	p := tea.NewProgram(u.model, opts...)
	u.program.Store(p)
	defer u.program.Store(nil)

	if _, err := p.Run(); err != nil && u.ctx.Err() == nil {
		return err
	}
	return nil
}

func (u *UI) send(msg tea.Msg) {
	if p := u.program.Load(); p != nil {
		p.Send(msg)
	}
}

func (u *UI) ShowChat(username string)     { u.send(showChatMsg{username: username}) }
func (u *UI) ConnectionEstablished()       { u.send(connectedMsg{}) }
func (u *UI) ConnectionFailed(text string) { u.send(connectFailedMsg{text: text}) }
func (u *UI) SetOnline(online bool)        { u.send(onlineMsg(online)) }
func (u *UI) Append(e chat.Entry)          { u.send(entryMsg(e)) }
