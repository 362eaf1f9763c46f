package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gosuda/stomp-chat/chat"
)

const maxTextLen = 10000

var (
	systemStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
	senderStyle    = lipgloss.NewStyle().Bold(true)
	timestampStyle = lipgloss.NewStyle().Faint(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	onlineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// FormatEntry renders one list row for a terminal. Sender and text are
// stripped of control characters so remote content cannot drive the
// terminal.
func FormatEntry(e chat.Entry) string {
	text := chat.CleanText(e.Text, maxTextLen)
	if e.Kind.System() {
		return systemStyle.Render("· " + text + " ·")
	}

	avatar := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(e.Avatar.Color)).
		Render(" " + chat.CleanText(e.Avatar.Initial, 1) + " ")

	var b strings.Builder
	b.WriteString(avatar)
	b.WriteString(" ")
	b.WriteString(senderStyle.Render(chat.CleanText(e.Sender, 100)))
	if e.Timestamp != "" {
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(chat.CleanText(e.Timestamp, 32)))
	}
	if e.Kind == chat.EntryOutgoing {
		b.WriteString(mutedStyle.Render(" (you)"))
	}
	b.WriteString("\n    ")
	b.WriteString(strings.ReplaceAll(text, "\n", "\n    "))
	return b.String()
}

func statusLine(online bool) string {
	if online {
		return onlineStyle.Render("●") + " Online"
	}
	return offlineStyle.Render("●") + " Offline"
}
