package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// CloseError is returned by reads once the server sent a SockJS close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("sockjs: closed by server (%d %s)", e.Code, e.Reason)
}

// sockJSPath returns the "{server}/{session}/websocket" suffix of a SockJS
// websocket transport URL.
func sockJSPath() string {
	session := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%03d/%s/websocket", rand.IntN(1000), session)
}

// decodeSockJSFrame unwraps one SockJS frame. Open and heartbeat frames
// carry no payload.
func decodeSockJSFrame(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case 'o', 'h':
		return nil, nil
	case 'a':
		var msgs []string
		if err := json.Unmarshal(data[1:], &msgs); err != nil {
			return nil, fmt.Errorf("sockjs: bad array frame: %w", err)
		}
		var buf bytes.Buffer
		for _, m := range msgs {
			buf.WriteString(m)
		}
		return buf.Bytes(), nil
	case 'm':
		var m string
		if err := json.Unmarshal(data[1:], &m); err != nil {
			return nil, fmt.Errorf("sockjs: bad message frame: %w", err)
		}
		return []byte(m), nil
	case 'c':
		var parts []json.RawMessage
		if err := json.Unmarshal(data[1:], &parts); err != nil || len(parts) != 2 {
			return nil, &CloseError{Code: 0, Reason: string(data[1:])}
		}
		ce := &CloseError{}
		_ = json.Unmarshal(parts[0], &ce.Code)
		_ = json.Unmarshal(parts[1], &ce.Reason)
		return nil, ce
	default:
		return nil, fmt.Errorf("sockjs: unknown frame type %q", data[0])
	}
}

// encodeSockJSFrame wraps p as a single-element SockJS message array.
func encodeSockJSFrame(p []byte) ([]byte, error) {
	return json.Marshal([]string{string(p)})
}
