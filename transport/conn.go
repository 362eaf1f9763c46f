package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 1 << 20
)

// wsConn presents a websocket as the byte stream go-stomp expects. Read is
// only called from the STOMP reader goroutine.
type wsConn struct {
	ws     *websocket.Conn
	sockjs bool
	rbuf   []byte

	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

func newWSConn(ws *websocket.Conn, sockjs bool) *wsConn {
	ws.SetReadLimit(maxFrameSize)
	return &wsConn{ws: ws, sockjs: sockjs, done: make(chan struct{})}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.rbuf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown()
			return 0, err
		}
		if c.sockjs {
			if data, err = decodeSockJSFrame(data); err != nil {
				c.shutdown()
				return 0, err
			}
		}
		c.rbuf = data
	}
	n := copy(p, c.rbuf)
	c.rbuf = c.rbuf[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	data := p
	if c.sockjs {
		var err error
		if data, err = encodeSockJSFrame(p); err != nil {
			return 0, err
		}
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

// shutdown tears the socket down after a read failure.
func (c *wsConn) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
