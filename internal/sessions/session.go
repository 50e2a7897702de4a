// Package sessions provides durable per-conversation history.
//
// Each session is persisted as a JSONL file: the first line is a metadata
// record, every following line is one message. Writes are atomic
// (temp file + rename).
package sessions

import "time"

// Message is one entry in a conversation.
type Message struct {
	Role       string     `json:"role"` // system | user | assistant | tool
	Content    string     `json:"content"`
	Timestamp  string     `json:"timestamp,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall mirrors the provider tool-call shape for persistence.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Session is a conversation's durable state. Messages are append-only
// during a turn; the manager persists the whole session after each turn.
type Session struct {
	Key       string                 `json:"key"`
	Messages  []Message              `json:"messages"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSession creates an empty session for a key.
func NewSession(key string) *Session {
	now := time.Now().Format(time.RFC3339)
	return &Session{
		Key:       key,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]interface{}{},
	}
}

// Append adds a message and bumps the updated timestamp.
func (s *Session) Append(msg Message) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now().Format(time.RFC3339)
}

// History returns the last max messages projected to {role, content} pairs
// for the LLM context. Zero or negative max means the default of 50.
func (s *Session) History(max int) []Message {
	if max <= 0 {
		max = 50
	}
	msgs := s.Messages
	if len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// Clear drops all messages.
func (s *Session) Clear() {
	s.Messages = nil
	s.UpdatedAt = time.Now().Format(time.RFC3339)
}
