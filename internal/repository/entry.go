package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KnowledgeEntryRepository handles persistence and lexical search of
// knowledge entries. The weighted search vector is a generated column, every
// write regenerates it in the same statement.
type KnowledgeEntryRepository struct {
	db dbtx
}

func NewKnowledgeEntryRepository(pool *pgxpool.Pool) *KnowledgeEntryRepository {
	return &KnowledgeEntryRepository{db: pool}
}

func (r *KnowledgeEntryRepository) Create(ctx context.Context, e *domain.KnowledgeEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_entries (id, knowledge_base_id, title, content, category, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.KnowledgeBaseID, e.Title, e.Content, e.Category, e.Tags, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *KnowledgeEntryRepository) Update(ctx context.Context, e *domain.KnowledgeEntry) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries
		 SET title = $2, content = $3, category = $4, tags = $5, updated_at = $6
		 WHERE id = $1`,
		e.ID, e.Title, e.Content, e.Category, e.Tags, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *KnowledgeEntryRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, knowledge_base_id, title, content, category, tags, access_count, last_accessed_at, created_at, updated_at
		 FROM knowledge_entries WHERE id = $1`,
		id,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// SearchLexical ranks entries for an application's active knowledge bases
// using websearch semantics (quoted phrases required, bare words boosting)
// against the weighted title/content/tags vector.
func (r *KnowledgeEntryRepository) SearchLexical(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.knowledge_base_id, e.title, e.content, e.category, e.tags,
		        e.access_count, e.last_accessed_at, e.created_at, e.updated_at,
		        ts_rank(e.search_vector, q.tsq) AS relevance
		 FROM knowledge_entries e
		 JOIN knowledge_bases kb ON kb.id = e.knowledge_base_id AND kb.is_active
		 JOIN application_knowledge_bases akb
		   ON akb.knowledge_base_id = kb.id AND akb.application_id = $2,
		 LATERAL (SELECT websearch_to_tsquery('english', $1) AS tsq) q
		 WHERE e.search_vector @@ q.tsq
		 ORDER BY relevance DESC, e.id
		 LIMIT $3`,
		query, applicationID, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.EntrySearchResult, 0, k)
	for rows.Next() {
		var e domain.KnowledgeEntry
		var lastAccessed *time.Time
		var relevance float32
		if err := rows.Scan(&e.ID, &e.KnowledgeBaseID, &e.Title, &e.Content, &e.Category, &e.Tags,
			&e.AccessCount, &lastAccessed, &e.CreatedAt, &e.UpdatedAt, &relevance); err != nil {
			return nil, err
		}
		e.LastAccessedAt = lastAccessed
		results = append(results, &domain.EntrySearchResult{Entry: &e, Relevance: relevance})
	}

	return results, rows.Err()
}

// TouchEntries bumps access counters for served entries. Best-effort side
// effect, callers never let its failure fail the read it accompanies.
func (r *KnowledgeEntryRepository) TouchEntries(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries
		 SET access_count = access_count + 1, last_accessed_at = now()
		 WHERE id = ANY($1)`,
		ids,
	)
	return err
}

// ListByKnowledgeBase returns entries newest-first with cursor pagination.
func (r *KnowledgeEntryRepository) ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) ([]*domain.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, knowledge_base_id, title, content, category, tags, access_count, last_accessed_at, created_at, updated_at
			 FROM knowledge_entries
			 WHERE knowledge_base_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			knowledgeBaseID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, knowledge_base_id, title, content, category, tags, access_count, last_accessed_at, created_at, updated_at
			 FROM knowledge_entries
			 WHERE knowledge_base_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			knowledgeBaseID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.KnowledgeEntry, 0, limit+1)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry
	var lastAccessed *time.Time
	if err := row.Scan(&e.ID, &e.KnowledgeBaseID, &e.Title, &e.Content, &e.Category, &e.Tags,
		&e.AccessCount, &lastAccessed, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.LastAccessedAt = lastAccessed
	return &e, nil
}
