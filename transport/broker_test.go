package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"

	"github.com/gosuda/stomp-chat/chat"
)

// fakeBroker is a minimal STOMP broker behaving like the chat server: it
// stamps a timestamp on everything sent to /app/* and rebroadcasts it on
// /topic/public.
type fakeBroker struct {
	t      *testing.T
	sockjs bool
	srv    *httptest.Server

	mu       sync.Mutex
	commands []string
	sends    []string
	conns    []*brokerConn
}

type brokerConn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	subs map[string]string // subscription id -> destination
}

func newFakeBroker(t *testing.T, sockjs bool) *fakeBroker {
	t.Helper()
	b := &fakeBroker{t: t, sockjs: sockjs}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serveWS))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBroker) url() string {
	return b.srv.URL + "/ws"
}

func (b *fakeBroker) serveWS(w http.ResponseWriter, r *http.Request) {
	if b.sockjs && !strings.HasSuffix(r.URL.Path, "/websocket") {
		http.NotFound(w, r)
		return
	}
	if !b.sockjs && r.URL.Path != "/ws" {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(r *http.Request) bool { return true },
		Subprotocols: []string{"v12.stomp"},
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	c := &brokerConn{ws: ws, subs: map[string]string{}}
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.mu.Unlock()

	if b.sockjs {
		_ = ws.WriteMessage(websocket.TextMessage, []byte("o"))
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if b.sockjs {
			var parts []string
			if err := json.Unmarshal(data, &parts); err != nil {
				return
			}
			data = []byte(strings.Join(parts, ""))
		}
		reader := frame.NewReader(bytes.NewReader(data))
		for {
			f, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return
			}
			if f == nil {
				continue // heart-beat
			}
			b.handle(c, f)
		}
	}
}

func (b *fakeBroker) handle(c *brokerConn, f *frame.Frame) {
	b.mu.Lock()
	b.commands = append(b.commands, f.Command)
	b.mu.Unlock()

	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		c.write(b.sockjs, "CONNECTED\nversion:1.2\nheart-beat:0,0\n\n\x00")
	case frame.SUBSCRIBE:
		c.mu.Lock()
		c.subs[f.Header.Get(frame.Id)] = f.Header.Get(frame.Destination)
		c.mu.Unlock()
	case frame.UNSUBSCRIBE:
		c.mu.Lock()
		delete(c.subs, f.Header.Get(frame.Id))
		c.mu.Unlock()
	case frame.SEND:
		b.mu.Lock()
		b.sends = append(b.sends, f.Header.Get(frame.Destination))
		b.mu.Unlock()
		m, err := chat.DecodeMessage(f.Body)
		if err != nil {
			return
		}
		m.Timestamp = "12:00:00"
		body, _ := chat.EncodeMessage(m)
		b.publish(chat.PublicTopic, body)
	}
	if receipt := f.Header.Get(frame.Receipt); receipt != "" {
		c.write(b.sockjs, fmt.Sprintf("RECEIPT\nreceipt-id:%s\n\n\x00", receipt))
	}
}

func (b *fakeBroker) publish(destination string, body []byte) {
	b.mu.Lock()
	conns := append([]*brokerConn(nil), b.conns...)
	b.mu.Unlock()
	for _, c := range conns {
		c.mu.Lock()
		var ids []string
		for id, d := range c.subs {
			if d == destination {
				ids = append(ids, id)
			}
		}
		c.mu.Unlock()
		for _, id := range ids {
			c.write(b.sockjs, fmt.Sprintf(
				"MESSAGE\ndestination:%s\nsubscription:%s\nmessage-id:%d\ncontent-type:application/json\ncontent-length:%d\n\n%s\x00",
				destination, id, len(b.sends), len(body), body))
		}
	}
}

// dropAll closes every client socket without a STOMP goodbye.
func (b *fakeBroker) dropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		_ = c.ws.Close()
	}
}

func (b *fakeBroker) getCommands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands...)
}

func (b *fakeBroker) getSends() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sends...)
}

func (c *brokerConn) write(sockjs bool, raw string) {
	data := []byte(raw)
	if sockjs {
		enc, _ := json.Marshal([]string{raw})
		data = append([]byte("a"), enc...)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, data)
}
