package chat

import (
	"context"
	"errors"
	"sync"
)

type sentFrame struct {
	destination string
	msg         Message
}

type mockBroker struct {
	mu           sync.Mutex
	sent         []sentFrame
	deliver      func([]byte)
	unsubscribed int
	closed       int
	done         chan struct{}
	doneOnce     sync.Once
	subscribeErr error
}

func newMockBroker() *mockBroker {
	return &mockBroker{done: make(chan struct{})}
}

func (b *mockBroker) Subscribe(destination string, deliver func([]byte)) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribeErr != nil {
		return nil, b.subscribeErr
	}
	b.deliver = deliver
	return mockSubscription{b}, nil
}

func (b *mockBroker) Send(destination string, body []byte) error {
	m, err := DecodeMessage(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentFrame{destination: destination, msg: m})
	return nil
}

func (b *mockBroker) Done() <-chan struct{} { return b.done }

func (b *mockBroker) Close() error {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
	b.drop()
	return nil
}

// drop simulates the transport going away.
func (b *mockBroker) drop() {
	b.doneOnce.Do(func() { close(b.done) })
}

func (b *mockBroker) getSent() []sentFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentFrame(nil), b.sent...)
}

func (b *mockBroker) countType(t MessageType) int {
	n := 0
	for _, f := range b.getSent() {
		if f.msg.Type == t {
			n++
		}
	}
	return n
}

type mockSubscription struct{ b *mockBroker }

func (s mockSubscription) Unsubscribe() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.unsubscribed++
	return nil
}

type mockDialer struct {
	mu      sync.Mutex
	brokers []*mockBroker
	err     error
}

func (d *mockDialer) Dial(ctx context.Context) (Broker, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	b := newMockBroker()
	d.brokers = append(d.brokers, b)
	return b, nil
}

func (d *mockDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.brokers)
}

func (d *mockDialer) last() *mockBroker {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brokers[len(d.brokers)-1]
}

type mockView struct {
	mu          sync.Mutex
	shown       []string
	established int
	failed      []string
	online      []bool
	entries     []Entry
}

func (v *mockView) ShowChat(username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, username)
}

func (v *mockView) ConnectionEstablished() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.established++
}

func (v *mockView) ConnectionFailed(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failed = append(v.failed, text)
}

func (v *mockView) SetOnline(online bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.online = append(v.online, online)
}

func (v *mockView) Append(e Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, e)
}

func (v *mockView) getEntries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Entry(nil), v.entries...)
}

func (v *mockView) lastOnline() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.online) == 0 {
		return false, false
	}
	return v.online[len(v.online)-1], true
}

type mockNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *mockNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *mockNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

type mockHistory struct {
	msgs []Message
	err  error
}

func (h *mockHistory) Append(m Message) error {
	h.msgs = append(h.msgs, m)
	return nil
}

func (h *mockHistory) Recent(limit int) ([]Message, error) {
	if h.err != nil {
		return nil, h.err
	}
	if len(h.msgs) > limit {
		return h.msgs[len(h.msgs)-limit:], nil
	}
	return h.msgs, nil
}

var errDial = errors.New("dial refused")
