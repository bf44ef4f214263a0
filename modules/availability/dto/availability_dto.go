package dto

import "time"

type SlotType string

const (
	SlotTypeBusy      SlotType = "busy"
	SlotTypeAvailable SlotType = "available"
	SlotTypeTentative SlotType = "tentative"
)

type SlotSource string

const (
	SlotSourceManual         SlotSource = "manual"
	SlotSourceRehearsal      SlotSource = "rehearsal"
	SlotSourceGoogleCalendar SlotSource = "google_calendar"
	SlotSourceDeviceCalendar SlotSource = "device_calendar"
)

// IsExternalCalendar reports whether slots from this source are owned by the
// import pipeline. Manual and rehearsal-derived slots never are.
func (s SlotSource) IsExternalCalendar() bool {
	return s == SlotSourceGoogleCalendar || s == SlotSourceDeviceCalendar
}

// AvailabilitySlot mirrors the backend's availability model. The backend is
// the source of truth; this service only creates, updates and deletes slots
// whose Source is an external-calendar value.
type AvailabilitySlot struct {
	ID              string     `json:"id,omitempty"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Type            SlotType   `json:"type"`
	Source          SlotSource `json:"source"`
	ExternalEventID string     `json:"external_event_id,omitempty"`
	Title           string     `json:"title,omitempty"`
	IsAllDay        bool       `json:"is_all_day"`
}

// SlotFields carries the updatable subset of a slot. Nil fields are left
// untouched by the backend.
type SlotFields struct {
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Title    *string    `json:"title,omitempty"`
	IsAllDay *bool      `json:"is_all_day,omitempty"`
}

// SlotUpdate addresses a slot by the external event it was imported from.
type SlotUpdate struct {
	ExternalEventID string     `json:"external_event_id"`
	Fields          SlotFields `json:"fields"`
}

// ========== Bulk request/response shapes ==========

type BulkCreateSlotsRequest struct {
	Slots []AvailabilitySlot `json:"slots"`
}

type BulkUpdateSlotsRequest struct {
	Updates []SlotUpdate `json:"updates"`
}

type BulkDeleteSlotsRequest struct {
	ExternalEventIDs []string `json:"external_event_ids"`
}

type SlotListResponse struct {
	Slots []AvailabilitySlot `json:"slots"`
}
