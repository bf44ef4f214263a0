package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	availabilityDto "rehearsal-hub/modules/availability/dto"
	devicecalDto "rehearsal-hub/modules/devicecal/dto"
)

// fakeProvider is an in-memory CalendarProvider. Events live in a flat map
// keyed by event ID.
type fakeProvider struct {
	mu     sync.Mutex
	events map[string]devicecalDto.CalendarEvent
	nextID int

	listErr            error
	createErr          error
	failCreateForTitle string
	updateErrByID      map[string]error
	deleteErrByID      map[string]error

	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		events:        make(map[string]devicecalDto.CalendarEvent),
		updateErrByID: make(map[string]error),
		deleteErrByID: make(map[string]error),
	}
}

func (p *fakeProvider) addEvent(event devicecalDto.CalendarEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[event.ID] = event
}

func (p *fakeProvider) HasPermission(ctx context.Context, userID uuid.UUID) bool     { return true }
func (p *fakeProvider) RequestPermission(ctx context.Context, userID uuid.UUID) bool { return true }

func (p *fakeProvider) ListCalendars(ctx context.Context, userID uuid.UUID) ([]devicecalDto.Calendar, error) {
	return []devicecalDto.Calendar{
		{ID: "primary", Title: "Personal", Writable: true, IsPrimary: true},
	}, nil
}

func (p *fakeProvider) ListEvents(ctx context.Context, userID uuid.UUID, calendarIDs []string, start, end time.Time) ([]devicecalDto.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	var out []devicecalDto.CalendarEvent
	for _, event := range p.events {
		if event.Start.After(end) || event.End.Before(start) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (p *fakeProvider) CreateEvent(ctx context.Context, userID uuid.UUID, req *devicecalDto.CreateEventRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return "", p.createErr
	}
	if p.failCreateForTitle != "" && req.Title == p.failCreateForTitle {
		return "", errors.NewAppError(errors.ErrInternalServer, "provider rejected event", nil)
	}
	p.nextID++
	id := fmt.Sprintf("evt-%d", p.nextID)
	p.events[id] = devicecalDto.CalendarEvent{
		ID:         id,
		CalendarID: req.CalendarID,
		Title:      req.Title,
		Start:      req.Start,
		End:        req.End,
		Location:   req.Location,
		Notes:      req.Notes,
	}
	return id, nil
}

func (p *fakeProvider) UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, patch *devicecalDto.EventPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++
	if err := p.updateErrByID[eventID]; err != nil {
		return err
	}
	event, ok := p.events[eventID]
	if !ok {
		return errors.NewAppError(errors.ErrNotFound, "event not found", nil)
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Start != nil {
		event.Start = *patch.Start
	}
	if patch.End != nil {
		event.End = *patch.End
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Notes != nil {
		event.Notes = *patch.Notes
	}
	p.events[eventID] = event
	return nil
}

func (p *fakeProvider) DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	if err := p.deleteErrByID[eventID]; err != nil {
		return err
	}
	if _, ok := p.events[eventID]; !ok {
		return errors.NewAppError(errors.ErrNotFound, "event not found", nil)
	}
	delete(p.events, eventID)
	return nil
}

func (p *fakeProvider) GetEvent(ctx context.Context, userID uuid.UUID, eventID string) (*devicecalDto.CalendarEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	event, ok := p.events[eventID]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

// fakeBackend is an in-memory availability Client keyed by slot ID.
type fakeBackend struct {
	mu    sync.Mutex
	slots map[string]availabilityDto.AvailabilitySlot

	createErr    error
	updateErr    error
	deleteErr    error
	deleteAllErr error

	deleteAllCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{slots: make(map[string]availabilityDto.AvailabilitySlot)}
}

func (b *fakeBackend) addSlot(slot availabilityDto.AvailabilitySlot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[slot.ID] = slot
}

func (b *fakeBackend) slotByExternalID(externalEventID string) (availabilityDto.AvailabilitySlot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, slot := range b.slots {
		if slot.ExternalEventID == externalEventID {
			return slot, true
		}
	}
	return availabilityDto.AvailabilitySlot{}, false
}

func (b *fakeBackend) GetAllAvailabilitySlots(ctx context.Context, userID uuid.UUID) ([]availabilityDto.AvailabilitySlot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]availabilityDto.AvailabilitySlot, 0, len(b.slots))
	for _, slot := range b.slots {
		out = append(out, slot)
	}
	return out, nil
}

func (b *fakeBackend) BulkCreateSlots(ctx context.Context, userID uuid.UUID, slots []availabilityDto.AvailabilitySlot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return b.createErr
	}
	for _, slot := range slots {
		b.slots[slot.ID] = slot
	}
	return nil
}

func (b *fakeBackend) BulkUpdateSlots(ctx context.Context, userID uuid.UUID, updates []availabilityDto.SlotUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		return b.updateErr
	}
	for _, update := range updates {
		for id, slot := range b.slots {
			if slot.ExternalEventID != update.ExternalEventID {
				continue
			}
			if update.Fields.StartsAt != nil {
				slot.StartsAt = *update.Fields.StartsAt
			}
			if update.Fields.EndsAt != nil {
				slot.EndsAt = *update.Fields.EndsAt
			}
			if update.Fields.Title != nil {
				slot.Title = *update.Fields.Title
			}
			if update.Fields.IsAllDay != nil {
				slot.IsAllDay = *update.Fields.IsAllDay
			}
			b.slots[id] = slot
		}
	}
	return nil
}

func (b *fakeBackend) BulkDeleteSlotsByExternalID(ctx context.Context, userID uuid.UUID, externalEventIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	for _, externalID := range externalEventIDs {
		for id, slot := range b.slots {
			if slot.ExternalEventID == externalID {
				delete(b.slots, id)
			}
		}
	}
	return nil
}

func (b *fakeBackend) DeleteAllImportedSlots(ctx context.Context, userID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteAllCalls++
	if b.deleteAllErr != nil {
		return b.deleteAllErr
	}
	for id, slot := range b.slots {
		if slot.Source.IsExternalCalendar() {
			delete(b.slots, id)
		}
	}
	return nil
}
