package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/config"
	"rehearsal-hub/core/constants"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/modules/availability/dto"
)

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(cfg config.BackendConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: constants.DefaultTimeout},
	}
}

func (c *httpClient) GetAllAvailabilitySlots(ctx context.Context, userID uuid.UUID) ([]dto.AvailabilitySlot, error) {
	var resp dto.SlotListResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s/availability-slots", userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Slots, nil
}

func (c *httpClient) BulkCreateSlots(ctx context.Context, userID uuid.UUID, slots []dto.AvailabilitySlot) error {
	if len(slots) == 0 {
		return nil
	}
	body := dto.BulkCreateSlotsRequest{Slots: slots}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/availability-slots/bulk", userID), body, nil)
}

func (c *httpClient) BulkUpdateSlots(ctx context.Context, userID uuid.UUID, updates []dto.SlotUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	body := dto.BulkUpdateSlotsRequest{Updates: updates}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/%s/availability-slots/bulk", userID), body, nil)
}

func (c *httpClient) BulkDeleteSlotsByExternalID(ctx context.Context, userID uuid.UUID, externalEventIDs []string) error {
	if len(externalEventIDs) == 0 {
		return nil
	}
	body := dto.BulkDeleteSlotsRequest{ExternalEventIDs: externalEventIDs}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/availability-slots/bulk-delete", userID), body, nil)
}

func (c *httpClient) DeleteAllImportedSlots(ctx context.Context, userID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%s/availability-slots/imported", userID), nil, nil)
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		logger.Error("AvailabilityClient:NewRequest:Error", "error", err, "path", path)
		return errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error("AvailabilityClient:DoRequest:Error", "error", err, "method", method, "path", path)
		return errors.NewAppError(errors.ErrInternalServer, "backend request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewAppError(errors.ErrNotFound, "backend resource not found", nil)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		logger.Error("AvailabilityClient:APIError", "status", resp.StatusCode, "body", string(raw), "path", path)
		return errors.NewAppError(errors.ErrInternalServer, fmt.Sprintf("backend API error: %d", resp.StatusCode), nil)
	}

	logger.Debug("AvailabilityClient:Request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			logger.Error("AvailabilityClient:Decode:Error", "error", err, "path", path)
			return errors.NewAppError(errors.ErrInternalServer, "failed to parse backend response", err)
		}
	}
	return nil
}
