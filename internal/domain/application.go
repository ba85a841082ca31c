package domain

import "time"

// Application is one deployed coach configuration. Its personality schema
// drives generation downstream; retrieval only carries it through.
type Application struct {
	ID          string
	Name        string
	IsActive    bool
	Config      map[string]any
	Personality *PersonalitySchema
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PersonalitySchema is the active behavior/personality blob for an
// application.
type PersonalitySchema struct {
	ID            string
	ApplicationID string
	Name          string
	Schema        map[string]any
	IsActive      bool
	CreatedAt     time.Time
}

// UserProgress tracks a user's stage and milestones within an application.
type UserProgress struct {
	UserID        string
	ApplicationID string
	Stage         string
	Milestones    map[string]any
	UpdatedAt     time.Time
}

// Caller is an already-authenticated identity. Authentication itself is an
// external collaborator; this core only consumes the resolved identity.
type Caller struct {
	UserID        string
	ApplicationID string
}

// IsAnonymous reports whether the caller carries no identity. Anonymous
// callers may only read public knowledge content.
func (c Caller) IsAnonymous() bool {
	return c.UserID == ""
}
