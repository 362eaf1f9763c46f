// Package chat holds the client side of the public chat room: the wire
// message, list rendering and the Session that ties a transport to a view.
package chat

import "context"

// Broker is a live connection to the message broker.
type Broker interface {
	// Subscribe registers deliver for every message body published on
	// destination. deliver is called from a single goroutine.
	Subscribe(destination string, deliver func(body []byte)) (Subscription, error)
	Send(destination string, body []byte) error
	// Done is closed once the underlying transport is gone.
	Done() <-chan struct{}
	Close() error
}

type Subscription interface {
	Unsubscribe() error
}

// Dialer opens a Broker connection.
type Dialer interface {
	Dial(ctx context.Context) (Broker, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Broker, error)

func (f DialerFunc) Dial(ctx context.Context) (Broker, error) { return f(ctx) }

// View is everything the session needs from the screen.
type View interface {
	// ShowChat swaps the name form for the chat panel and shows username.
	ShowChat(username string)
	// ConnectionEstablished hides the connecting placeholder.
	ConnectionEstablished()
	// ConnectionFailed replaces the connecting placeholder with text.
	ConnectionFailed(text string)
	SetOnline(online bool)
	// Append adds a row to the message list and scrolls to it.
	Append(e Entry)
}

// Notifier plays the new message sound.
type Notifier interface {
	Notify()
}

// History records received messages across runs.
type History interface {
	Append(m Message) error
	Recent(limit int) ([]Message, error)
}

type multiView []View

// Views returns a View that forwards every call to each of views in order.
func Views(views ...View) View {
	return multiView(views)
}

func (mv multiView) ShowChat(username string) {
	for _, v := range mv {
		v.ShowChat(username)
	}
}

func (mv multiView) ConnectionEstablished() {
	for _, v := range mv {
		v.ConnectionEstablished()
	}
}

func (mv multiView) ConnectionFailed(text string) {
	for _, v := range mv {
		v.ConnectionFailed(text)
	}
}

func (mv multiView) SetOnline(online bool) {
	for _, v := range mv {
		v.SetOnline(online)
	}
}

func (mv multiView) Append(e Entry) {
	for _, v := range mv {
		v.Append(e)
	}
}
