package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/gosuda/stomp-chat/chat"
)

// PlainView writes the chat as a scrolling log, for pipes and dumb terminals.
type PlainView struct {
	mu sync.Mutex
	w  io.Writer
}

var _ chat.View = (*PlainView)(nil)

func NewPlainView(w io.Writer) *PlainView {
	return &PlainView{w: w}
}

func (v *PlainView) println(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintln(v.w, s)
}

func (v *PlainView) ShowChat(username string) {
	v.println(titleStyle.Render("Chat - " + username))
	v.println(mutedStyle.Render("Connecting..."))
}

func (v *PlainView) ConnectionEstablished() {}

func (v *PlainView) ConnectionFailed(text string) {
	v.println(errorStyle.Render(text))
}

func (v *PlainView) SetOnline(online bool) {
	v.println(statusLine(online))
}

func (v *PlainView) Append(e chat.Entry) {
	v.println(FormatEntry(e))
}
