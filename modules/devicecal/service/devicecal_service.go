package service

import (
	"context"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/modules/devicecal/dto"
)

// DeviceCalendarService wraps a CalendarProvider with the permission gateway
// and calendar enumeration used by the sync surface.
type DeviceCalendarService interface {
	HasPermission(ctx context.Context, userID uuid.UUID) bool
	RequestPermission(ctx context.Context, userID uuid.UUID) bool
	// ListWritableCalendars returns an empty list (not an error) when
	// permission is missing.
	ListWritableCalendars(ctx context.Context, userID uuid.UUID) ([]dto.Calendar, error)
	// DefaultCalendar prefers the primary calendar, else the first
	// writable one, else nil.
	DefaultCalendar(ctx context.Context, userID uuid.UUID) (*dto.Calendar, error)
}

type deviceCalendarService struct {
	provider CalendarProvider
}

func NewDeviceCalendarService(provider CalendarProvider) DeviceCalendarService {
	return &deviceCalendarService{provider: provider}
}

func (s *deviceCalendarService) HasPermission(ctx context.Context, userID uuid.UUID) bool {
	return s.provider.HasPermission(ctx, userID)
}

func (s *deviceCalendarService) RequestPermission(ctx context.Context, userID uuid.UUID) bool {
	granted := s.provider.RequestPermission(ctx, userID)
	logger.Info("DeviceCalendarService:RequestPermission", "user_id", userID, "granted", granted)
	return granted
}

func (s *deviceCalendarService) ListWritableCalendars(ctx context.Context, userID uuid.UUID) ([]dto.Calendar, error) {
	if !s.provider.HasPermission(ctx, userID) {
		return []dto.Calendar{}, nil
	}

	calendars, err := s.provider.ListCalendars(ctx, userID)
	if err != nil {
		logger.Error("DeviceCalendarService:ListWritableCalendars:Error", "user_id", userID, "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to list calendars", err)
	}

	writable := make([]dto.Calendar, 0, len(calendars))
	for _, cal := range calendars {
		if cal.Writable {
			writable = append(writable, cal)
		}
	}
	return writable, nil
}

func (s *deviceCalendarService) DefaultCalendar(ctx context.Context, userID uuid.UUID) (*dto.Calendar, error) {
	writable, err := s.ListWritableCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(writable) == 0 {
		return nil, nil
	}

	for i := range writable {
		if writable[i].IsPrimary {
			return &writable[i], nil
		}
	}
	return &writable[0], nil
}
