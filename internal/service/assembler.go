package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
)

// Facet names reported when a sub-lookup is degraded out of a payload.
const (
	FacetApplication = "application"
	FacetRecentTurns = "recent_turns"
	FacetProgress    = "progress"
	FacetMemories    = "memories"
	FacetKnowledge   = "knowledge"
)

// DefaultRecentTurnLimit is used when a caller does not bound the history.
const DefaultRecentTurnLimit = 10

// ApplicationRepositoryInterface defines the repository interface for
// application config, knowledge-base grants, and user progress.
type ApplicationRepositoryInterface interface {
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	ListKnowledgeBaseIDs(ctx context.Context, applicationID string) ([]string, error)
	GetProgress(ctx context.Context, userID, applicationID string) (*domain.UserProgress, error)
}

// RecentTurnLister defines the conversation lookup the assembler depends on.
type RecentTurnLister interface {
	ListRecentMessages(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error)
}

// MemoryRecaller defines the memory lookup the assembler depends on.
type MemoryRecaller interface {
	ListActive(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error)
}

// KnowledgeSearcher defines the optional retrieval fan-out for a knowledge
// query attached to the turn.
type KnowledgeSearcher interface {
	SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error)
}

// EntrySearcher defines the lexical retrieval fan-out.
type EntrySearcher interface {
	Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error)
}

// AssembleInput identifies one turn's context request.
type AssembleInput struct {
	ApplicationID   string
	UserID          string
	RecentTurnLimit int
	// KnowledgeQuery, when non-empty, adds vector and lexical retrieval to
	// the fan-out.
	KnowledgeQuery string
	KnowledgeStage string
}

// ContextPayload is the bounded context object handed to generation. Facets
// are independent; there is no relative ordering across them.
type ContextPayload struct {
	Application      *domain.Application
	KnowledgeBaseIDs []string
	RecentTurns      []*domain.Message
	Progress         *domain.UserProgress
	Memories         []*domain.UserMemory
	ChunkResults     []*domain.ChunkSearchResult
	EntryResults     []*domain.EntrySearchResult
	Partial          bool
	DegradedFacets   []string
}

// AssemblerConfig carries the latency budgets. These are design targets and
// stay configurable.
type AssemblerConfig struct {
	FacetTimeout   time.Duration
	OverallTimeout time.Duration
	MemoryLimit    int
	KnowledgeTopK  int
	EntryLimit     int
}

// DefaultAssemblerConfig returns the default budgets.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		FacetTimeout:   400 * time.Millisecond,
		OverallTimeout: time.Second,
		MemoryLimit:    DefaultRecallLimit,
		KnowledgeTopK:  DefaultTopK,
		EntryLimit:     DefaultLexicalLimit,
	}
}

// ContextAssembler fans out the per-turn sub-lookups, joins them under the
// latency budget, and degrades gracefully: a slow or failing facet is left
// out of the payload and flagged, it never fails the turn.
type ContextAssembler struct {
	apps     ApplicationRepositoryInterface
	turns    RecentTurnLister
	memories MemoryRecaller
	vector   KnowledgeSearcher
	lexical  EntrySearcher
	auth     authz.Authorizer
	cfg      AssemblerConfig
}

func NewContextAssembler(
	apps ApplicationRepositoryInterface,
	turns RecentTurnLister,
	memories MemoryRecaller,
	vector KnowledgeSearcher,
	lexical EntrySearcher,
	auth authz.Authorizer,
	cfg AssemblerConfig,
) *ContextAssembler {
	if cfg.FacetTimeout <= 0 {
		cfg.FacetTimeout = DefaultAssemblerConfig().FacetTimeout
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = DefaultAssemblerConfig().OverallTimeout
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = DefaultRecallLimit
	}
	if cfg.KnowledgeTopK <= 0 {
		cfg.KnowledgeTopK = DefaultTopK
	}
	if cfg.EntryLimit <= 0 {
		cfg.EntryLimit = DefaultLexicalLimit
	}
	return &ContextAssembler{
		apps:     apps,
		turns:    turns,
		memories: memories,
		vector:   vector,
		lexical:  lexical,
		auth:     auth,
		cfg:      cfg,
	}
}

type facetResult struct {
	name string
	err  error
}

// Assemble builds the context payload for one turn. The sub-lookups run
// concurrently, each under its own share of the budget; the assembler itself
// performs no cross-tenant aggregation. Authorization failure fails closed.
func (a *ContextAssembler) Assemble(ctx context.Context, caller domain.Caller, input AssembleInput) (*ContextPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContextAssembler.Assemble", telemetry.SpanAttributes{
		UserID:        input.UserID,
		ApplicationID: input.ApplicationID,
		Operation:     "assemble",
	})
	defer span.End()

	if err := a.auth.Authorize(caller, input.UserID); err != nil {
		return nil, err
	}
	if input.ApplicationID == "" {
		return nil, domain.ErrMissingRequiredField
	}

	turnLimit := input.RecentTurnLimit
	if turnLimit <= 0 {
		turnLimit = DefaultRecentTurnLimit
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.OverallTimeout)
	defer cancel()

	payload := &ContextPayload{}
	results := make(chan facetResult)
	facets := 0

	run := func(name string, fn func(ctx context.Context) error) {
		facets++
		go func() {
			fctx, fcancel := context.WithTimeout(ctx, a.cfg.FacetTimeout)
			defer fcancel()
			results <- facetResult{name: name, err: fn(fctx)}
		}()
	}

	// Each facet writes only its own payload slot, so the goroutines do not
	// need a lock between them; the join below is the synchronization point.
	run(FacetApplication, func(ctx context.Context) error {
		app, err := a.apps.GetApplication(ctx, input.ApplicationID)
		if err != nil {
			return err
		}
		kbIDs, err := a.apps.ListKnowledgeBaseIDs(ctx, input.ApplicationID)
		if err != nil {
			return err
		}
		payload.Application = app
		payload.KnowledgeBaseIDs = kbIDs
		return nil
	})

	run(FacetRecentTurns, func(ctx context.Context) error {
		turns, err := a.turns.ListRecentMessages(ctx, input.UserID, input.ApplicationID, turnLimit)
		if err != nil {
			return err
		}
		payload.RecentTurns = turns
		return nil
	})

	run(FacetProgress, func(ctx context.Context) error {
		progress, err := a.apps.GetProgress(ctx, input.UserID, input.ApplicationID)
		if err != nil {
			return err
		}
		payload.Progress = progress
		return nil
	})

	run(FacetMemories, func(ctx context.Context) error {
		memories, err := a.memories.ListActive(ctx, input.UserID, input.ApplicationID, a.cfg.MemoryLimit)
		if err != nil {
			return err
		}
		payload.Memories = memories
		return nil
	})

	if input.KnowledgeQuery != "" && a.vector != nil && a.lexical != nil {
		run(FacetKnowledge, func(ctx context.Context) error {
			chunks, err := a.vector.SearchText(ctx, caller, input.KnowledgeQuery, input.KnowledgeStage, a.cfg.KnowledgeTopK)
			if err != nil {
				return err
			}
			entries, err := a.lexical.Search(ctx, input.KnowledgeQuery, input.ApplicationID, a.cfg.EntryLimit)
			if err != nil {
				return err
			}
			payload.ChunkResults = chunks
			payload.EntryResults = entries
			return nil
		})
	}

	for i := 0; i < facets; i++ {
		res := <-results
		if res.err == nil {
			continue
		}
		// A missing application still yields a usable payload with empty
		// facets; likewise a timed-out or failing sub-lookup.
		payload.Partial = true
		payload.DegradedFacets = append(payload.DegradedFacets, res.name)
		if errors.Is(res.err, context.DeadlineExceeded) {
			log.Printf("context assembly: facet %s exceeded its budget", res.name)
		} else {
			log.Printf("context assembly: facet %s failed: %v", res.name, res.err)
		}
	}

	// The whole-call deadline is surfaced, unlike per-facet ones.
	if err := ctx.Err(); errors.Is(err, context.DeadlineExceeded) {
		return nil, domain.ErrAssemblyDeadline
	}

	return payload, nil
}
