package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessTokenRepository resolves opaque bearer tokens to caller identities.
// Token issuance and rotation belong to an external collaborator; only the
// hash ever touches this store.
type AccessTokenRepository struct {
	db dbtx
}

func NewAccessTokenRepository(pool *pgxpool.Pool) *AccessTokenRepository {
	return &AccessTokenRepository{db: pool}
}

// ValidateToken returns the caller identity for an unrevoked token.
func (r *AccessTokenRepository) ValidateToken(ctx context.Context, token string) (domain.Caller, error) {
	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])

	var caller domain.Caller
	err := r.db.QueryRow(ctx,
		`SELECT user_id, application_id
		 FROM access_tokens
		 WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
	).Scan(&caller.UserID, &caller.ApplicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Caller{}, domain.ErrInvalidToken
		}
		return domain.Caller{}, err
	}

	return caller, nil
}

// Insert stores a token hash for a caller. Used by tests and bootstrap.
func (r *AccessTokenRepository) Insert(ctx context.Context, token string, caller domain.Caller) error {
	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])

	_, err := r.db.Exec(ctx,
		`INSERT INTO access_tokens (token_hash, user_id, application_id) VALUES ($1, $2, $3)`,
		hash, caller.UserID, caller.ApplicationID,
	)
	return err
}
