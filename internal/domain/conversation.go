package domain

import (
	"time"
	"unicode/utf8"
)

// MessageRole identifies who produced a conversation turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// IsValid checks if the role is one of the defined values
func (r MessageRole) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MaxMessageContentChars bounds stored message content, counted in runes.
const MaxMessageContentChars = 20000

// Conversation groups the messages of one user/application thread.
// MessageCount and LastMessageAt are derived counters maintained
// transactionally on append.
type Conversation struct {
	ID            string
	UserID        string
	ApplicationID string
	Title         string
	MessageCount  int
	LastMessageAt *time.Time
	CreatedAt     time.Time
}

// Message is a single conversation turn. Messages are append-only and never
// mutated after creation.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	Tone           string
	SourceChunkIDs []string
	CreatedAt      time.Time
}

// Validate checks invariants on a message before it is appended.
func (m *Message) Validate() error {
	if m.ConversationID == "" || m.Content == "" {
		return ErrMissingRequiredField
	}
	if !m.Role.IsValid() {
		return ErrInvalidMessageRole
	}
	if utf8.RuneCountInString(m.Content) > MaxMessageContentChars {
		return ErrInputTooLarge
	}
	return nil
}
