package dto

import "time"

// Calendar is a calendar on the user's connected device/provider account.
type Calendar struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Writable  bool   `json:"writable"`
	IsPrimary bool   `json:"is_primary"`
}

type CalendarListResponse struct {
	Calendars []Calendar `json:"calendars"`
}

// CalendarEvent is a flat event instance. No recurrence rules; providers are
// asked to expand recurring events into single instances.
type CalendarEvent struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	AllDay     bool      `json:"all_day"`
	Location   string    `json:"location,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

type CreateEventRequest struct {
	CalendarID            string    `json:"calendar_id"`
	Title                 string    `json:"title"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	Location              string    `json:"location,omitempty"`
	Notes                 string    `json:"notes,omitempty"`
	ReminderMinutesBefore int       `json:"reminder_minutes_before"`
	Busy                  bool      `json:"busy"`
}

// EventPatch carries partial updates; nil fields are left unchanged.
type EventPatch struct {
	Title    *string    `json:"title,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	Location *string    `json:"location,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
}

type PermissionResponse struct {
	Granted bool `json:"granted"`
}
