package repository

import (
	"context"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserMemoryRepository handles persistence of decaying per-user memories.
type UserMemoryRepository struct {
	db dbtx
}

func NewUserMemoryRepository(pool *pgxpool.Pool) *UserMemoryRepository {
	return &UserMemoryRepository{db: pool}
}

func (r *UserMemoryRepository) Create(ctx context.Context, m *domain.UserMemory) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	lastAccessed := m.LastAccessedAt
	if lastAccessed.IsZero() {
		lastAccessed = createdAt
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO user_memories
			(id, user_id, application_id, conversation_id, kind, content, importance, decay_rate,
			 created_at, last_accessed_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.UserID, m.ApplicationID, nullableString(m.ConversationID), m.Kind, m.Content,
		m.Importance, m.DecayRate, createdAt, lastAccessed, m.ExpiresAt,
	)
	return err
}

// ListActive returns the caller's memories ordered by importance descending,
// excluding expired rows. Both tenant keys are part of the predicate.
func (r *UserMemoryRepository) ListActive(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, application_id, conversation_id, kind, content, importance, decay_rate,
		        created_at, last_accessed_at, last_decayed_at, expires_at
		 FROM user_memories
		 WHERE user_id = $1 AND application_id = $2
		   AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY importance DESC, created_at DESC
		 LIMIT $3`,
		userID, applicationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := make([]*domain.UserMemory, 0, limit)
	for rows.Next() {
		var m domain.UserMemory
		var conversationID *string
		if err := rows.Scan(&m.ID, &m.UserID, &m.ApplicationID, &conversationID, &m.Kind, &m.Content,
			&m.Importance, &m.DecayRate, &m.CreatedAt, &m.LastAccessedAt, &m.LastDecayedAt, &m.ExpiresAt); err != nil {
			return nil, err
		}
		if conversationID != nil {
			m.ConversationID = *conversationID
		}
		memories = append(memories, &m)
	}

	return memories, rows.Err()
}

// DecayInactive applies one decay step to every memory whose last access is
// older than the threshold and whose importance is still positive. The
// last_decayed_at guard makes a re-run within the same window a no-op, so
// the job is safe to invoke twice. Each row is updated in a single statement,
// a concurrent read never observes a half-applied decay.
func (r *UserMemoryRepository) DecayInactive(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	tag, err := r.db.Exec(ctx,
		`UPDATE user_memories
		 SET importance = GREATEST(importance - decay_rate, 0),
		     last_decayed_at = now()
		 WHERE last_accessed_at < $1
		   AND importance > 0
		   AND (last_decayed_at IS NULL OR last_decayed_at < $1)`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired physically removes memories whose expiry has passed.
func (r *UserMemoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM user_memories WHERE expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a single memory owned by the given user.
func (r *UserMemoryRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM user_memories WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemoryNotFound
	}
	return nil
}
