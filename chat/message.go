package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageType is the kind of event carried on the public topic.
type MessageType string

const (
	TypeJoin  MessageType = "JOIN"
	TypeLeave MessageType = "LEAVE"
	TypeChat  MessageType = "CHAT"
)

// Destinations used by the chat service.
const (
	PublicTopic            = "/topic/public"
	AddUserDestination     = "/app/chat.addUser"
	SendMessageDestination = "/app/chat.sendMessage"
)

// Message is the JSON payload exchanged with the server. Timestamp is
// attached by the server before broadcast and is opaque to the client.
type Message struct {
	Sender    string      `json:"sender"`
	Content   string      `json:"content,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// EncodeMessage marshals m without HTML escaping so that <, > and & reach
// other clients in their original form.
func EncodeMessage(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeMessage parses a payload received from the public topic.
func DecodeMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("decode chat message: %w", err)
	}
	return m, nil
}
