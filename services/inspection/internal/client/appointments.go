package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/services/inspection/internal/domain"
)

// AppointmentClient talks to the appointment service, which owns appointment
// state. Trust is forwarded: every call carries the inbound caller's bearer
// token, never a service credential. Timeouts are short and there are no
// retries; callers decide how to degrade.
type AppointmentClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAppointmentClient(baseURL string, timeout time.Duration) *AppointmentClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AppointmentClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type listAppointmentsQuery struct {
	Status string `url:"status"`
}

// ListConfirmed fetches the appointments currently confirmed for inspection.
func (c *AppointmentClient) ListConfirmed(ctx context.Context, authorization string) ([]domain.Appointment, error) {
	params, err := query.Values(listAppointmentsQuery{Status: "confirmed"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	url := c.baseURL + "/appointments/all?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appointment service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("appointment service returned status %d", resp.StatusCode)
	}

	var appointments []domain.Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

// PushInspectionStatus mirrors the derived final status onto the owning
// service's appointment record. The local inspection stays the source of
// truth whether or not this call lands.
func (c *AppointmentClient) PushInspectionStatus(ctx context.Context, authorization string, appointmentID uuid.UUID, status string) error {
	body, err := json.Marshal(map[string]string{"inspection_status": status})
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}

	url := fmt.Sprintf("%s/appointments/%s/inspection-status", c.baseURL, appointmentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("appointment service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("appointment service returned status %d", resp.StatusCode)
	}
	return nil
}
