package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rehearsal-hub/core/database"
	"rehearsal-hub/modules/rehearsal/entity"
)

// RehearsalRepository is read-only: rehearsal data is owned by the
// scheduling side of the application.
type RehearsalRepository interface {
	GetUpcomingWithProject(ctx context.Context, userID uuid.UUID, from time.Time) ([]entity.RehearsalWithProject, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.RehearsalWithProject, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.RehearsalWithProject, error)
}

type rehearsalRepository struct {
	db database.IDatabase
}

func NewRehearsalRepository(db database.IDatabase) RehearsalRepository {
	return &rehearsalRepository{db: db}
}

const rehearsalColumns = `
	r.id, r.project_id, p.name AS project_name, r.starts_at, r.ends_at,
	COALESCE(r.location, '') AS location,
	COALESCE(r.title, '') AS title,
	COALESCE(r.description, '') AS description
`

func (r *rehearsalRepository) GetUpcomingWithProject(ctx context.Context, userID uuid.UUID, from time.Time) ([]entity.RehearsalWithProject, error) {
	query := `
		SELECT ` + rehearsalColumns + `
		FROM rehearsals r
		JOIN projects p ON p.id = r.project_id
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1 AND r.ends_at >= $2
		ORDER BY r.starts_at ASC
	`
	var rehearsals []entity.RehearsalWithProject
	if err := r.db.SelectContext(ctx, &rehearsals, query, userID, from); err != nil {
		return nil, err
	}
	return rehearsals, nil
}

func (r *rehearsalRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.RehearsalWithProject, error) {
	if len(ids) == 0 {
		return []entity.RehearsalWithProject{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT ` + rehearsalColumns + `
		FROM rehearsals r
		JOIN projects p ON p.id = r.project_id
		WHERE r.id = ANY($1)
		ORDER BY r.starts_at ASC
	`
	var rehearsals []entity.RehearsalWithProject
	if err := r.db.SelectContext(ctx, &rehearsals, query, pq.Array(idStrings)); err != nil {
		return nil, err
	}
	return rehearsals, nil
}

func (r *rehearsalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.RehearsalWithProject, error) {
	query := `
		SELECT ` + rehearsalColumns + `
		FROM rehearsals r
		JOIN projects p ON p.id = r.project_id
		WHERE r.id = $1
	`
	var rehearsal entity.RehearsalWithProject
	if err := r.db.GetContext(ctx, &rehearsal, query, id); err != nil {
		return nil, err
	}
	return &rehearsal, nil
}
