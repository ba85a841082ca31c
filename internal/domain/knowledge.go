package domain

import "time"

// KnowledgeBase groups lexical knowledge entries. Applications are granted
// read access per knowledge base; inactive bases never serve entries.
type KnowledgeBase struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KnowledgeEntry is a richer knowledge record with a derived lexical index.
// The index weights title over content over tags and is regenerated
// synchronously with every write, so it is never served stale.
type KnowledgeEntry struct {
	ID              string
	KnowledgeBaseID string
	Title           string
	Content         string
	Category        string
	Tags            []string
	AccessCount     int64
	LastAccessedAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks required fields before an entry is persisted.
func (e *KnowledgeEntry) Validate() error {
	if e.KnowledgeBaseID == "" || e.Title == "" || e.Content == "" {
		return ErrMissingRequiredField
	}
	return nil
}

// EntrySearchResult pairs an entry with its lexical relevance score.
type EntrySearchResult struct {
	Entry     *KnowledgeEntry
	Relevance float32
}
