package server

import (
	"net/http"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/api/handlers"
	"github.com/clearpath-coaching/hugoctx/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator       middleware.AuthValidator
	SearchHandler       *handlers.SearchHandler
	MentionsHandler     *handlers.MentionsHandler
	ContextHandler      *handlers.ContextHandler
	ConversationHandler *handlers.ConversationHandler
	MemoryHandler       *handlers.MemoryHandler
	KnowledgeHandler    *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Semantic search serves two tiers: anonymous callers only see public
	// chunks, authenticated callers see everything.
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalBearerAuth(cfg.AuthValidator))
		r.Post("/search/semantic", cfg.SearchHandler.Semantic)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.AuthValidator))

		r.Post("/search/entries", cfg.SearchHandler.Entries)
		r.Post("/mentions/extract", cfg.MentionsHandler.Extract)
		r.Post("/context/assemble", cfg.ContextHandler.Assemble)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", cfg.ConversationHandler.Start)
			r.Get("/recent", cfg.ConversationHandler.Recent)
			r.Post("/{id}/messages", cfg.ConversationHandler.Append)
		})

		r.Route("/memories", func(r chi.Router) {
			r.Post("/", cfg.MemoryHandler.Record)
			r.Get("/", cfg.MemoryHandler.Recall)
			r.Delete("/{id}", cfg.MemoryHandler.Forget)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Create)
			r.Get("/{id}", cfg.KnowledgeHandler.Get)
			r.Put("/{id}", cfg.KnowledgeHandler.Update)
		})

		r.Get("/knowledge-bases/{id}/entries", cfg.KnowledgeHandler.List)
	})

	return r
}
