package service

import (
	"context"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
)

// ConversationTxRepository is the transaction-bound surface for appends.
type ConversationTxRepository interface {
	AppendMessage(ctx context.Context, m *domain.Message) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Conversations() ConversationTxRepository
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
