package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/modules/devicecal/dto"
)

// CalendarProvider is the device/provider calendar boundary consumed by the
// sync pipelines. Event IDs are opaque to callers; a provider may encode
// whatever it needs to resolve the event later.
type CalendarProvider interface {
	// HasPermission reports whether calendar access is currently granted.
	// Any underlying failure reads as "not granted" (fail closed).
	HasPermission(ctx context.Context, userID uuid.UUID) bool
	// RequestPermission re-validates the user's calendar grant. The OAuth
	// consent flow itself is owned by the auth layer.
	RequestPermission(ctx context.Context, userID uuid.UUID) bool

	ListCalendars(ctx context.Context, userID uuid.UUID) ([]dto.Calendar, error)
	ListEvents(ctx context.Context, userID uuid.UUID, calendarIDs []string, start, end time.Time) ([]dto.CalendarEvent, error)
	CreateEvent(ctx context.Context, userID uuid.UUID, req *dto.CreateEventRequest) (string, error)
	UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, patch *dto.EventPatch) error
	DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) error
	// GetEvent returns (nil, nil) when the event no longer exists.
	GetEvent(ctx context.Context, userID uuid.UUID, eventID string) (*dto.CalendarEvent, error)
}
