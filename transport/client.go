// Package transport speaks STOMP to the chat server over a websocket,
// optionally wrapped in SockJS framing.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/stomp-chat/chat"
)

const contentTypeJSON = "application/json"

var ErrTimeout = errors.New("transport: timed out waiting for broker")

// Dialer holds the settings for opening a STOMP session.
type Dialer struct {
	// URL is the endpoint, e.g. http://localhost:8080/ws. http and https are
	// mapped to ws and wss.
	URL string
	// SockJS selects the SockJS websocket transport under URL instead of a
	// raw STOMP websocket at URL.
	SockJS bool
	// HeartBeat is offered for both directions; zero disables heart-beating.
	HeartBeat time.Duration
	Host      string
	Login     string
	Passcode  string
	Header    http.Header

	HandshakeTimeout time.Duration
	// CloseTimeout bounds the wait for receipts on unsubscribe and disconnect.
	CloseTimeout time.Duration
}

// Dial connects the websocket and completes the STOMP handshake.
func (d *Dialer) Dial(ctx context.Context) (chat.Broker, error) {
	target, err := d.endpoint()
	if err != nil {
		return nil, err
	}

	wd := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	if wd.HandshakeTimeout <= 0 {
		wd.HandshakeTimeout = 10 * time.Second
	}
	if !d.SockJS {
		wd.Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}
	}
	ws, _, err := wd.DialContext(ctx, target, d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	conn := newWSConn(ws, d.SockJS)

	// The STOMP handshake has no context of its own; closing the socket
	// unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(d.HeartBeat, d.HeartBeat),
	}
	if d.Host != "" {
		opts = append(opts, stomp.ConnOpt.Host(d.Host))
	}
	if d.Login != "" {
		opts = append(opts, stomp.ConnOpt.Login(d.Login, d.Passcode))
	}
	sc, err := stomp.Connect(conn, opts...)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stomp connect: %w", ctx.Err())
		}
		return nil, fmt.Errorf("stomp connect: %w", err)
	}
	log.Debug().Str("url", target).Msg("[transport] connected")

	timeout := d.CloseTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{conn: sc, ws: conn, closeTimeout: timeout}, nil
}

func (d *Dialer) endpoint() (string, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", d.URL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if d.SockJS {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + sockJSPath()
	}
	return u.String(), nil
}

// Client is a connected STOMP session.
type Client struct {
	conn         *stomp.Conn
	ws           *wsConn
	closeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (c *Client) Send(destination string, body []byte) error {
	return c.conn.Send(destination, contentTypeJSON, body)
}

// Subscribe starts delivering message bodies from destination to deliver
// on a dedicated goroutine until the subscription ends.
func (c *Client) Subscribe(destination string, deliver func(body []byte)) (chat.Subscription, error) {
	sub, err := c.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	s := &subscription{sub: sub, destination: destination, timeout: c.closeTimeout}
	go s.drain(deliver)
	return s, nil
}

// Done is closed when the websocket is gone.
func (c *Client) Done() <-chan struct{} {
	return c.ws.done
}

// Close sends DISCONNECT and waits for the receipt, forcing the connection
// down if the broker does not answer within the close timeout.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		err := waitTimeout(c.conn.Disconnect, c.closeTimeout)
		if errors.Is(err, ErrTimeout) {
			err = c.conn.MustDisconnect()
		}
		c.closeErr = err
		_ = c.ws.Close()
	})
	return c.closeErr
}

type subscription struct {
	sub         *stomp.Subscription
	destination string
	timeout     time.Duration
}

func (s *subscription) drain(deliver func([]byte)) {
	for msg := range s.sub.C {
		if msg.Err != nil {
			log.Debug().Err(msg.Err).Str("destination", s.destination).Msg("[transport] subscription ended")
			return
		}
		deliver(msg.Body)
	}
}

func (s *subscription) Unsubscribe() error {
	return waitTimeout(func() error { return s.sub.Unsubscribe() }, s.timeout)
}

func waitTimeout(fn func() error, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- fn() }()
	select {
	case err := <-errc:
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}
