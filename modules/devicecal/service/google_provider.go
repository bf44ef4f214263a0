package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"rehearsal-hub/core/config"
	"rehearsal-hub/core/constants"
	"rehearsal-hub/core/crypto"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/modules/devicecal/dto"
	"rehearsal-hub/modules/devicecal/repository"
)

const (
	ProviderGoogle = "google"

	googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"

	// Opaque event refs carry the owning calendar so single-event
	// operations can resolve without a second lookup.
	eventRefSeparator = "::"
)

type googleProvider struct {
	repo      repository.ConnectionRepository
	encryptor *crypto.Encryptor
	oauth     *oauth2.Config
	client    *http.Client
}

func NewGoogleProvider(repo repository.ConnectionRepository, encryptor *crypto.Encryptor, cfg config.GoogleConfig) CalendarProvider {
	return &googleProvider{
		repo:      repo,
		encryptor: encryptor,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
		},
		client: &http.Client{Timeout: constants.DefaultTimeout},
	}
}

// ========== Permission gateway ==========

func (p *googleProvider) HasPermission(ctx context.Context, userID uuid.UUID) bool {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return false
	}
	// Probe with a minimal calendar-list call; any failure reads as denied.
	probeURL := googleCalendarAPIBase + "/users/me/calendarList?maxResults=1"
	if err := p.doJSON(ctx, http.MethodGet, probeURL, token, nil, nil); err != nil {
		logger.Warn("GoogleProvider:HasPermission:ProbeFailed", "user_id", userID, "error", err)
		return false
	}
	return true
}

func (p *googleProvider) RequestPermission(ctx context.Context, userID uuid.UUID) bool {
	// The consent screen is driven by the auth layer. Here we can only
	// force a token refresh against the stored grant and re-probe.
	conn, err := p.repo.GetActiveByUser(ctx, userID, ProviderGoogle)
	if err != nil || conn == nil {
		return false
	}
	if _, err := p.refreshToken(ctx, userID); err != nil {
		logger.Warn("GoogleProvider:RequestPermission:RefreshFailed", "user_id", userID, "error", err)
		return false
	}
	return p.HasPermission(ctx, userID)
}

// ========== Calendar operations ==========

func (p *googleProvider) ListCalendars(ctx context.Context, userID uuid.UUID) ([]dto.Calendar, error) {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []struct {
			ID         string `json:"id"`
			Summary    string `json:"summary"`
			Primary    bool   `json:"primary"`
			AccessRole string `json:"accessRole"`
		} `json:"items"`
	}
	listURL := googleCalendarAPIBase + "/users/me/calendarList?maxResults=250"
	if err := p.doJSON(ctx, http.MethodGet, listURL, token, nil, &result); err != nil {
		return nil, err
	}

	calendars := make([]dto.Calendar, 0, len(result.Items))
	for _, item := range result.Items {
		calendars = append(calendars, dto.Calendar{
			ID:        item.ID,
			Title:     item.Summary,
			Writable:  item.AccessRole == "owner" || item.AccessRole == "writer",
			IsPrimary: item.Primary,
		})
	}
	return calendars, nil
}

func (p *googleProvider) ListEvents(ctx context.Context, userID uuid.UUID, calendarIDs []string, start, end time.Time) ([]dto.CalendarEvent, error) {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	var events []dto.CalendarEvent
	for _, calendarID := range calendarIDs {
		params := url.Values{}
		params.Set("timeMin", start.Format(time.RFC3339))
		params.Set("timeMax", end.Format(time.RFC3339))
		params.Set("singleEvents", "true")
		params.Set("orderBy", "startTime")
		params.Set("maxResults", "2500")

		listURL := fmt.Sprintf("%s/calendars/%s/events?%s",
			googleCalendarAPIBase, url.PathEscape(calendarID), params.Encode())

		var result struct {
			Items []googleEvent `json:"items"`
		}
		if err := p.doJSON(ctx, http.MethodGet, listURL, token, nil, &result); err != nil {
			return nil, err
		}

		for _, item := range result.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, item.toEvent(calendarID))
		}
	}
	return events, nil
}

func (p *googleProvider) CreateEvent(ctx context.Context, userID uuid.UUID, req *dto.CreateEventRequest) (string, error) {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return "", err
	}

	transparency := "transparent"
	if req.Busy {
		transparency = "opaque"
	}
	payload := map[string]any{
		"summary":      req.Title,
		"location":     req.Location,
		"description":  req.Notes,
		"start":        map[string]string{"dateTime": req.Start.Format(time.RFC3339)},
		"end":          map[string]string{"dateTime": req.End.Format(time.RFC3339)},
		"transparency": transparency,
		"reminders": map[string]any{
			"useDefault": false,
			"overrides": []map[string]any{
				{"method": "popup", "minutes": req.ReminderMinutesBefore},
			},
		},
	}

	createURL := fmt.Sprintf("%s/calendars/%s/events", googleCalendarAPIBase, url.PathEscape(req.CalendarID))
	var result struct {
		ID string `json:"id"`
	}
	if err := p.doJSON(ctx, http.MethodPost, createURL, token, payload, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.NewAppError(errors.ErrInternalServer, "Google API returned no event id", nil)
	}

	return encodeEventRef(req.CalendarID, result.ID), nil
}

func (p *googleProvider) UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, patch *dto.EventPatch) error {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	calendarID, rawID, err := decodeEventRef(eventID)
	if err != nil {
		return err
	}

	payload := map[string]any{}
	if patch.Title != nil {
		payload["summary"] = *patch.Title
	}
	if patch.Start != nil {
		payload["start"] = map[string]string{"dateTime": patch.Start.Format(time.RFC3339)}
	}
	if patch.End != nil {
		payload["end"] = map[string]string{"dateTime": patch.End.Format(time.RFC3339)}
	}
	if patch.Location != nil {
		payload["location"] = *patch.Location
	}
	if patch.Notes != nil {
		payload["description"] = *patch.Notes
	}
	if len(payload) == 0 {
		return nil
	}

	patchURL := fmt.Sprintf("%s/calendars/%s/events/%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), url.PathEscape(rawID))
	return p.doJSON(ctx, http.MethodPatch, patchURL, token, payload, nil)
}

func (p *googleProvider) DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) error {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	calendarID, rawID, err := decodeEventRef(eventID)
	if err != nil {
		return err
	}

	deleteURL := fmt.Sprintf("%s/calendars/%s/events/%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), url.PathEscape(rawID))
	return p.doJSON(ctx, http.MethodDelete, deleteURL, token, nil, nil)
}

func (p *googleProvider) GetEvent(ctx context.Context, userID uuid.UUID, eventID string) (*dto.CalendarEvent, error) {
	token, err := p.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	calendarID, rawID, err := decodeEventRef(eventID)
	if err != nil {
		return nil, err
	}

	getURL := fmt.Sprintf("%s/calendars/%s/events/%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), url.PathEscape(rawID))
	var item googleEvent
	if err := p.doJSON(ctx, http.MethodGet, getURL, token, nil, &item); err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if item.Status == "cancelled" {
		return nil, nil
	}

	event := item.toEvent(calendarID)
	return &event, nil
}

// ========== Google wire types ==========

type googleEvent struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Summary     string         `json:"summary"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Start       googleDateTime `json:"start"`
	End         googleDateTime `json:"end"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

func (e googleEvent) toEvent(calendarID string) dto.CalendarEvent {
	event := dto.CalendarEvent{
		ID:         encodeEventRef(calendarID, e.ID),
		CalendarID: calendarID,
		Title:      e.Summary,
		Location:   e.Location,
		Notes:      e.Description,
	}

	if e.Start.Date != "" {
		event.AllDay = true
		start, _ := time.ParseInLocation("2006-01-02", e.Start.Date, time.UTC)
		end, _ := time.ParseInLocation("2006-01-02", e.End.Date, time.UTC)
		event.Start = start
		// Google's all-day end date is exclusive.
		event.End = end.AddDate(0, 0, -1)
		return event
	}

	event.Start, _ = time.Parse(time.RFC3339, e.Start.DateTime)
	event.End, _ = time.Parse(time.RFC3339, e.End.DateTime)
	return event
}

func encodeEventRef(calendarID, eventID string) string {
	return calendarID + eventRefSeparator + eventID
}

func decodeEventRef(ref string) (calendarID, eventID string, err error) {
	idx := strings.LastIndex(ref, eventRefSeparator)
	if idx <= 0 || idx+len(eventRefSeparator) >= len(ref) {
		return "", "", errors.NewAppError(errors.ErrInvalidInput, "malformed event reference", nil)
	}
	return ref[:idx], ref[idx+len(eventRefSeparator):], nil
}

// ========== Token handling ==========

func (p *googleProvider) accessToken(ctx context.Context, userID uuid.UUID) (string, error) {
	conn, err := p.repo.GetActiveByUser(ctx, userID, ProviderGoogle)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to load calendar connection", err)
	}
	if conn == nil {
		return "", errors.NewAppError(errors.ErrPermissionDenied, "no Google Calendar connected", nil)
	}

	accessToken, err := p.encryptor.Decrypt(conn.AccessToken)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to decrypt access token", err)
	}

	if time.Now().Before(conn.TokenExpiresAt.Add(-5 * time.Minute)) {
		return accessToken, nil
	}
	return p.refreshToken(ctx, userID)
}

func (p *googleProvider) refreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	conn, err := p.repo.GetActiveByUser(ctx, userID, ProviderGoogle)
	if err != nil || conn == nil {
		return "", errors.NewAppError(errors.ErrPermissionDenied, "no Google Calendar connected", err)
	}

	refreshToken, err := p.encryptor.Decrypt(conn.RefreshToken)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to decrypt refresh token", err)
	}

	logger.Info("GoogleProvider:RefreshToken", "user_id", userID)
	source := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		logger.Error("GoogleProvider:RefreshToken:Error", "user_id", userID, "error", err)
		return "", errors.NewAppError(errors.ErrPermissionDenied, "Google token refresh failed", err)
	}

	sealedAccess, err := p.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to encrypt access token", err)
	}
	conn.AccessToken = sealedAccess
	conn.TokenExpiresAt = token.Expiry
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		sealedRefresh, err := p.encryptor.Encrypt(token.RefreshToken)
		if err == nil {
			conn.RefreshToken = sealedRefresh
		}
	}

	if err := p.repo.UpdateTokens(ctx, conn); err != nil {
		logger.Error("GoogleProvider:RefreshToken:Persist:Error", "user_id", userID, "error", err)
	}
	return token.AccessToken, nil
}

// ========== HTTP plumbing ==========

func (p *googleProvider) doJSON(ctx context.Context, method, rawURL, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Google Calendar request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.NewAppError(errors.ErrNotFound, "calendar event not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		raw, _ := io.ReadAll(resp.Body)
		logger.Error("GoogleProvider:APIPermissionError", "status", resp.StatusCode, "body", string(raw))
		return errors.NewAppError(errors.ErrPermissionDenied, "calendar access denied", nil)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		raw, _ := io.ReadAll(resp.Body)
		logger.Error("GoogleProvider:APIError", "status", resp.StatusCode, "body", string(raw))
		return errors.NewAppError(errors.ErrInternalServer, fmt.Sprintf("Google Calendar API error: %d", resp.StatusCode), nil)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to parse Google response", err)
		}
	}
	return nil
}
