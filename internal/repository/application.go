package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationRepository handles application configuration, knowledge-base
// grants, and per-user progress lookups.
type ApplicationRepository struct {
	db dbtx
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: pool}
}

// GetApplication loads an application together with its active personality
// schema, if one exists.
func (r *ApplicationRepository) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	var app domain.Application
	var config []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, name, is_active, config, created_at, updated_at
		 FROM applications WHERE id = $1`,
		id,
	).Scan(&app.ID, &app.Name, &app.IsActive, &config, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &app.Config); err != nil {
			return nil, err
		}
	}

	var ps domain.PersonalitySchema
	var schema []byte
	err = r.db.QueryRow(ctx,
		`SELECT id, application_id, name, schema, is_active, created_at
		 FROM personality_schemas WHERE application_id = $1 AND is_active`,
		id,
	).Scan(&ps.ID, &ps.ApplicationID, &ps.Name, &schema, &ps.IsActive, &ps.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &app, nil
		}
		return nil, err
	}
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &ps.Schema); err != nil {
			return nil, err
		}
	}
	app.Personality = &ps

	return &app, nil
}

// ListKnowledgeBaseIDs returns the active knowledge bases the application is
// allowed to draw from.
func (r *ApplicationRepository) ListKnowledgeBaseIDs(ctx context.Context, applicationID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kb.id
		 FROM knowledge_bases kb
		 JOIN application_knowledge_bases akb ON akb.knowledge_base_id = kb.id
		 WHERE akb.application_id = $1 AND kb.is_active
		 ORDER BY kb.id`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetProgress loads a user's stage/milestone state. A user with no progress
// row yet gets a zero-value record, not an error.
func (r *ApplicationRepository) GetProgress(ctx context.Context, userID, applicationID string) (*domain.UserProgress, error) {
	var p domain.UserProgress
	var milestones []byte
	err := r.db.QueryRow(ctx,
		`SELECT user_id, application_id, stage, milestones, updated_at
		 FROM user_progress WHERE user_id = $1 AND application_id = $2`,
		userID, applicationID,
	).Scan(&p.UserID, &p.ApplicationID, &p.Stage, &milestones, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.UserProgress{UserID: userID, ApplicationID: applicationID}, nil
		}
		return nil, err
	}
	if len(milestones) > 0 {
		if err := json.Unmarshal(milestones, &p.Milestones); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
