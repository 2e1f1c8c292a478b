package domain

import "encoding/json"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single transcript entry. Messages are never modified after append.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the ordered, append-only transcript of one task run.
type Session struct {
	Messages []Message `json:"messages"`
}

// NewSession creates a session seeded with the given messages.
func NewSession(seed ...Message) *Session {
	msgs := make([]Message, len(seed))
	copy(msgs, seed)
	return &Session{Messages: msgs}
}

// Append adds a message at the end of the transcript.
func (s *Session) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Snapshot returns a copy of all messages, safe to hand to collaborators.
func (s *Session) Snapshot() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Transcript returns the messages produced after the seed messages.
// It never returns nil, so the JSON form is always an array.
func (s *Session) Transcript() []Message {
	if len(s.Messages) <= SeedMessages {
		return []Message{}
	}
	out := make([]Message, len(s.Messages)-SeedMessages)
	copy(out, s.Messages[SeedMessages:])
	return out
}

// TranscriptJSON serializes Transcript.
func (s *Session) TranscriptJSON() (string, error) {
	data, err := json.Marshal(s.Transcript())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
