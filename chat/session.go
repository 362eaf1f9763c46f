package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConnectErrorText is shown in place of the connecting placeholder when the
// broker cannot be reached.
const ConnectErrorText = "Could not connect to WebSocket server. Please refresh this page to try again!"

const maxNameLen = 100

var (
	ErrEmptyName      = errors.New("chat: name is empty")
	ErrUsernameLocked = errors.New("chat: username already set for this session")
	ErrClosed         = errors.New("chat: session closed")
)

// Session is one user's presence in the public room. The username is fixed
// by the first Connect; Disconnect disposes the session for good.
type Session struct {
	dialer   Dialer
	view     View
	notifier Notifier
	history  History
	backlog  int
	log      zerolog.Logger

	mu       sync.Mutex
	username string
	broker   Broker
	sub      Subscription
	shown    bool
	disposed bool
}

type Option func(*Session)

func WithNotifier(n Notifier) Option { return func(s *Session) { s.notifier = n } }

// WithHistory records every received message to h and replays the last
// backlog entries when the chat panel is first shown.
func WithHistory(h History) Option { return func(s *Session) { s.history = h } }

func WithBacklog(n int) Option { return func(s *Session) { s.backlog = n } }

func WithLogger(l zerolog.Logger) Option { return func(s *Session) { s.log = l } }

func NewSession(d Dialer, v View, opts ...Option) *Session {
	s := &Session{
		dialer:  d,
		view:    v,
		backlog: 50,
		log:     log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Username returns the name chosen on Connect, or "" before that.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Connected reports whether a live transport is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broker != nil
}

// Connect logs in as name, opens the transport, subscribes to the public
// topic and announces JOIN. Calling it while connected is a no-op.
func (s *Session) Connect(ctx context.Context, name string) error {
	name = CleanText(name, maxNameLen)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	switch {
	case s.disposed:
		s.mu.Unlock()
		return ErrClosed
	case s.username != "" && s.username != name:
		s.mu.Unlock()
		return ErrUsernameLocked
	case s.broker != nil:
		s.mu.Unlock()
		return nil
	}
	s.username = name
	first := !s.shown
	s.shown = true
	s.mu.Unlock()

	if first {
		s.view.ShowChat(name)
		s.replay(name)
	}
	return s.open(ctx, name)
}

// Resume reconnects a session that lost its transport, e.g. when the
// window regains focus. Sessions that never logged in, are live, or have
// been disposed are left alone.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	name := s.username
	idle := name != "" && !s.disposed && s.broker == nil
	s.mu.Unlock()
	if !idle {
		return nil
	}
	s.log.Info().Str("user", name).Msg("[chat] resuming session")
	return s.open(ctx, name)
}

func (s *Session) open(ctx context.Context, name string) error {
	b, err := s.dialer.Dial(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("[chat] connect failed")
		s.view.ConnectionFailed(ConnectErrorText)
		return fmt.Errorf("connect: %w", err)
	}

	s.mu.Lock()
	if s.disposed || s.broker != nil {
		// Lost a race with Disconnect or a concurrent Connect.
		disposed := s.disposed
		s.mu.Unlock()
		_ = b.Close()
		if disposed {
			return ErrClosed
		}
		return nil
	}
	sub, err := b.Subscribe(PublicTopic, s.deliver)
	if err != nil {
		s.mu.Unlock()
		_ = b.Close()
		s.log.Warn().Err(err).Msg("[chat] subscribe failed")
		s.view.ConnectionFailed(ConnectErrorText)
		return fmt.Errorf("subscribe %s: %w", PublicTopic, err)
	}
	s.broker, s.sub = b, sub
	s.mu.Unlock()

	if err := s.publish(b, AddUserDestination, Message{Sender: name, Type: TypeJoin}); err != nil {
		s.log.Warn().Err(err).Msg("[chat] join announce failed")
	}
	s.view.ConnectionEstablished()
	s.view.SetOnline(true)
	s.log.Info().Str("user", name).Msg("[chat] connected")

	go s.watch(b)
	return nil
}

// watch clears the live transport when it goes away on its own.
func (s *Session) watch(b Broker) {
	<-b.Done()
	s.mu.Lock()
	lost := s.broker == b
	if lost {
		s.broker, s.sub = nil, nil
	}
	s.mu.Unlock()
	if lost {
		s.log.Warn().Msg("[chat] transport lost")
		s.view.SetOnline(false)
	}
}

// Disconnect announces LEAVE, unsubscribes and closes the transport. The
// session cannot be reconnected afterwards. Repeated calls do nothing.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.disposed = true
	b, sub, name := s.broker, s.sub, s.username
	s.broker, s.sub = nil, nil
	s.mu.Unlock()
	if b == nil {
		return nil
	}

	var errs []error
	if err := s.publish(b, AddUserDestination, Message{Sender: name, Type: TypeLeave}); err != nil {
		errs = append(errs, fmt.Errorf("announce leave: %w", err))
	}
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe: %w", err))
		}
	}
	if err := b.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	s.view.SetOnline(false)
	s.log.Info().Str("user", name).Msg("[chat] disconnected")
	return errors.Join(errs...)
}

// Send publishes text as a CHAT message. Blank text and a missing
// transport are silently ignored.
func (s *Session) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	b, name := s.broker, s.username
	s.mu.Unlock()
	if b == nil {
		s.log.Debug().Msg("[chat] send without transport dropped")
		return nil
	}
	return s.publish(b, SendMessageDestination, Message{Sender: name, Content: text, Type: TypeChat})
}

// Receive handles one payload from the public topic.
func (s *Session) Receive(body []byte) error {
	m, err := DecodeMessage(body)
	if err != nil {
		return err
	}
	self := s.Username()

	if m.Type == TypeChat && m.Sender != self && s.notifier != nil {
		s.notifier.Notify()
	}
	if s.history != nil {
		if err := s.history.Append(m); err != nil {
			s.log.Debug().Err(err).Msg("[chat] persist message")
		}
	}
	s.view.Append(Render(m, self))
	return nil
}

func (s *Session) deliver(body []byte) {
	if err := s.Receive(body); err != nil {
		s.log.Warn().Err(err).Msg("[chat] dropped malformed message")
	}
}

func (s *Session) replay(self string) {
	if s.history == nil || s.backlog <= 0 {
		return
	}
	msgs, err := s.history.Recent(s.backlog)
	if err != nil {
		s.log.Warn().Err(err).Msg("[chat] load history failed")
		return
	}
	for _, m := range msgs {
		s.view.Append(Render(m, self))
	}
}

func (s *Session) publish(b Broker, destination string, m Message) error {
	body, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := b.Send(destination, body); err != nil {
		return fmt.Errorf("send %s: %w", destination, err)
	}
	return nil
}
