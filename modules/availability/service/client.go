package service

import (
	"context"

	"github.com/google/uuid"

	"rehearsal-hub/modules/availability/dto"
)

// Client is the availability-slot contract of the scheduling backend. The
// backend's own persistence is out of scope here; everything goes through
// these bulk operations.
type Client interface {
	GetAllAvailabilitySlots(ctx context.Context, userID uuid.UUID) ([]dto.AvailabilitySlot, error)
	BulkCreateSlots(ctx context.Context, userID uuid.UUID, slots []dto.AvailabilitySlot) error
	BulkUpdateSlots(ctx context.Context, userID uuid.UUID, updates []dto.SlotUpdate) error
	BulkDeleteSlotsByExternalID(ctx context.Context, userID uuid.UUID, externalEventIDs []string) error
	// DeleteAllImportedSlots removes every slot whose source is an
	// external calendar, regardless of local tracking.
	DeleteAllImportedSlots(ctx context.Context, userID uuid.UUID) error
}
