package domain

import "time"

// MemoryKind classifies what a per-user memory captures.
type MemoryKind string

const (
	MemoryKindConversationalContext MemoryKind = "conversational_context"
	MemoryKindPreference            MemoryKind = "preference"
	MemoryKindMilestone             MemoryKind = "milestone"
	MemoryKindInsight               MemoryKind = "insight"
)

// IsValid checks if the memory kind is one of the defined values
func (k MemoryKind) IsValid() bool {
	switch k {
	case MemoryKindConversationalContext, MemoryKindPreference, MemoryKindMilestone, MemoryKindInsight:
		return true
	default:
		return false
	}
}

// UserMemory is a per-user, per-application fact whose importance decays
// with inactivity. Importance only moves down: decay or deletion, never a
// spontaneous increase (reads do not reinforce).
type UserMemory struct {
	ID             string
	UserID         string
	ApplicationID  string
	ConversationID string
	Kind           MemoryKind
	Content        string
	Importance     float32
	DecayRate      float32
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastDecayedAt  *time.Time
	ExpiresAt      *time.Time
}

// Validate checks invariants on a memory before it is recorded.
func (m *UserMemory) Validate() error {
	if m.UserID == "" || m.ApplicationID == "" {
		return ErrMissingRequiredField
	}
	if !m.Kind.IsValid() {
		return ErrInvalidMemoryKind
	}
	if m.Content == "" {
		return ErrMissingRequiredField
	}
	if m.Importance < 0 || m.Importance > 1 {
		return ErrInvalidImportance
	}
	if m.DecayRate < 0 || m.DecayRate > 1 {
		return ErrInvalidDecayRate
	}
	return nil
}

// IsExpired reports whether the memory's expiry has passed at the given time.
// Expiry is independent from importance decay.
func (m *UserMemory) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// DecayImportance applies one decay step: max(0, importance - rate).
// The same rule is applied in SQL by the batch decay job; this helper exists
// so the arithmetic has a single in-process definition for callers and tests.
func DecayImportance(importance, rate float32) float32 {
	decayed := importance - rate
	if decayed < 0 {
		return 0
	}
	return decayed
}
