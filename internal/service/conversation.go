package service

import (
	"context"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
	"github.com/google/uuid"
)

// ConversationRepositoryInterface defines the repository interface for
// conversation reads.
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListRecentMessages(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error)
}

// ConversationService manages append-only conversation turns. The message
// insert and the owning conversation's derived counters commit in one
// transaction.
type ConversationService struct {
	repo ConversationRepositoryInterface
	tx   TxRunner
	auth authz.Authorizer
}

func NewConversationService(repo ConversationRepositoryInterface, tx TxRunner, auth authz.Authorizer) *ConversationService {
	return &ConversationService{
		repo: repo,
		tx:   tx,
		auth: auth,
	}
}

// StartConversation creates a new conversation owned by the caller.
func (s *ConversationService) StartConversation(ctx context.Context, caller domain.Caller, applicationID, title string) (*domain.Conversation, error) {
	if err := s.auth.Authorize(caller, caller.UserID); err != nil {
		return nil, err
	}
	if applicationID == "" {
		return nil, domain.ErrMissingRequiredField
	}

	conv := &domain.Conversation{
		ID:            uuid.NewString(),
		UserID:        caller.UserID,
		ApplicationID: applicationID,
		Title:         title,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Append validates a turn, checks the caller owns the conversation, and
// commits the message plus counter updates atomically.
func (s *ConversationService) Append(ctx context.Context, caller domain.Caller, m *domain.Message) (*domain.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConversationService.Append", telemetry.SpanAttributes{
		UserID:    caller.UserID,
		Operation: "conversation_append",
	})
	defer span.End()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	conv, err := s.repo.GetByID(ctx, m.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := s.auth.Authorize(caller, conv.UserID); err != nil {
		return nil, err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		return repos.Conversations().AppendMessage(ctx, m)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return m, nil
}

// RecentTurns returns the caller's newest turns within an application,
// newest first.
func (s *ConversationService) RecentTurns(ctx context.Context, caller domain.Caller, userID, applicationID string, limit int) ([]*domain.Message, error) {
	if err := s.auth.Authorize(caller, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListRecentMessages(ctx, userID, applicationID, limit)
}
