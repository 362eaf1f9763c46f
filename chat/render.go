package chat

// EntryKind selects how a row in the message list is drawn.
type EntryKind int

const (
	EntryJoin EntryKind = iota
	EntryLeave
	EntryIncoming
	EntryOutgoing
)

// Class returns the CSS modifier used by the web client for the row.
func (k EntryKind) Class() string {
	switch k {
	case EntryJoin:
		return "message-join"
	case EntryLeave:
		return "message-leave"
	case EntryOutgoing:
		return "message-outgoing"
	default:
		return "message-incoming"
	}
}

// System reports whether the row is a join/leave notice.
func (k EntryKind) System() bool {
	return k == EntryJoin || k == EntryLeave
}

// Avatar is the coloured initial shown next to chat rows.
type Avatar struct {
	Initial string
	Color   string
}

// Entry is one rendered row of the message list.
type Entry struct {
	Kind      EntryKind
	Sender    string
	Text      string
	Timestamp string
	Avatar    Avatar
}

// Render turns a received message into a list row. self is the current
// session's username and decides between incoming and outgoing rows.
func Render(m Message, self string) Entry {
	e := Entry{Sender: m.Sender, Timestamp: m.Timestamp}
	switch m.Type {
	case TypeJoin:
		e.Kind = EntryJoin
		e.Text = m.Sender + " joined the chat"
	case TypeLeave:
		e.Kind = EntryLeave
		e.Text = m.Sender + " left the chat"
	default:
		e.Kind = EntryIncoming
		if m.Sender == self {
			e.Kind = EntryOutgoing
		}
		e.Text = m.Content
		e.Avatar = Avatar{Initial: AvatarInitial(m.Sender), Color: AvatarColor(m.Sender)}
	}
	return e
}
