package entity

import (
	"time"

	"github.com/google/uuid"
)

// RehearsalWithProject is the read-only projection the export pipeline works
// from. The pipeline never mutates rehearsals.
type RehearsalWithProject struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`
	ProjectName string    `db:"project_name" json:"project_name"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Location    string    `db:"location" json:"location,omitempty"`
	Title       string    `db:"title" json:"title,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
}
