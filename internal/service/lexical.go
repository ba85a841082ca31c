package service

import (
	"context"
	"strings"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
)

// DefaultLexicalLimit is the result count used when a caller does not ask
// for one.
const DefaultLexicalLimit = 10

// EntrySearchRepository defines the repository interface for lexical entry
// search.
type EntrySearchRepository interface {
	SearchLexical(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error)
}

// LexicalSearchService performs weighted full-text retrieval over knowledge
// entries scoped to an application's active knowledge bases.
type LexicalSearchService struct {
	repo    EntrySearchRepository
	touches *TouchQueue
}

func NewLexicalSearchService(repo EntrySearchRepository, touches *TouchQueue) *LexicalSearchService {
	return &LexicalSearchService{
		repo:    repo,
		touches: touches,
	}
}

// Search ranks entries for the query, title matches over content matches
// over tag matches. Every served entry gets an asynchronous access-count
// touch; the search result never depends on that side effect.
func (s *LexicalSearchService) Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "LexicalSearchService.Search", telemetry.SpanAttributes{
		ApplicationID: applicationID,
		Operation:     "lexical_search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if applicationID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if k <= 0 {
		k = DefaultLexicalLimit
	}

	results, err := s.repo.SearchLexical(ctx, query, applicationID, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.touches != nil && len(results) > 0 {
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.Entry.ID)
		}
		s.touches.Enqueue(ids)
	}

	return results, nil
}
