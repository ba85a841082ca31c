package repository

import (
	"context"
	"errors"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles conversations and their append-only
// messages.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, user_id, application_id, title, message_count, created_at)
		 VALUES ($1, $2, $3, $4, 0, $5)`,
		c.ID, c.UserID, c.ApplicationID, c.Title, createdAt,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, application_id, title, message_count, last_message_at, created_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.UserID, &c.ApplicationID, &c.Title, &c.MessageCount, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

// AppendMessage inserts a message and bumps the owning conversation's
// derived counters. Callers run it inside a transaction via TxRunner.
func (r *ConversationRepository) AppendMessage(ctx context.Context, m *domain.Message) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, tone, source_chunk_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Tone, m.SourceChunkIDs, createdAt,
	)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE conversations
		 SET message_count = message_count + 1, last_message_at = $2
		 WHERE id = $1`,
		m.ConversationID, createdAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// ListRecentMessages returns the user's most recent turns within an
// application, newest first.
func (r *ConversationRepository) ListRecentMessages(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT m.id, m.conversation_id, m.role, m.content, m.tone, m.source_chunk_ids, m.created_at
		 FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.user_id = $1 AND c.application_id = $2
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT $3`,
		userID, applicationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Tone, &m.SourceChunkIDs, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}

	return messages, rows.Err()
}
