package ipc

import "encoding/json"

// Message is one decoded inbound frame. Two disjoint kinds travel on the
// wire: requests carry an id and get exactly one correlated response;
// events omit the id and are fire-and-forget.
type Message struct {
	// Command is the routing key.
	Command string
	// ID is the caller-assigned correlation id, verbatim, nil when absent.
	ID json.RawMessage
	// Raw is the full frame payload for handler-specific decoding.
	Raw json.RawMessage
}

// HasID reports whether the message is a request expecting a response.
func (m *Message) HasID() bool { return len(m.ID) > 0 }

// Decode unmarshals the full payload into v.
func (m *Message) Decode(v any) error { return json.Unmarshal(m.Raw, v) }

// DecodeMessage parses a frame payload into a Message.
func DecodeMessage(payload []byte) (*Message, error) {
	var env struct {
		Command string          `json:"command"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &ProtocolError{Reason: "undecodable payload", Cause: err}
	}
	if env.Command == "" {
		return nil, &ProtocolError{Reason: "missing command field"}
	}
	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)
	return &Message{Command: env.Command, ID: env.ID, Raw: raw}, nil
}
