package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPAPI talks to the admission service over its public JSON endpoints.
type HTTPAPI struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAPI builds the HTTP client boundary.
func NewHTTPAPI(baseURL string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Status fetches the remaining war-pool quota.
func (a *HTTPAPI) Status(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/status", nil)
	if err != nil {
		return 0, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		QuotaRemaining int64 `json:"quota_remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.QuotaRemaining, nil
}

// Claim posts a war claim for the session.
func (a *HTTPAPI) Claim(ctx context.Context, session Session) (ClaimOutcome, error) {
	body, err := json.Marshal(map[string]string{
		"user_id": session.UserID,
		"name":    session.Name,
	})
	if err != nil {
		return ClaimOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/war", bytes.NewReader(body))
	if err != nil {
		return ClaimOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return ClaimOutcome{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Status       string `json:"status"`
		TicketNumber string `json:"ticket_number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ClaimOutcome{}, err
	}
	return ClaimOutcome{Status: payload.Status, TicketNumber: payload.TicketNumber}, nil
}
