package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/roadworthy/inspection-platform/pkg/logger"
)

// Publisher is the best-effort domain event channel. Publish failures are the
// caller's to log and absorb; no domain operation depends on delivery.
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	AccountRegistered   = "account.registered"
	AccountRoleChanged  = "account.role_changed"
	InspectionSubmitted = "inspection.submitted"
	StatusPushFailed    = "inspection.status_push_failed"
)

// Event payloads
type AccountRegisteredEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountRoleChangedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	OldRole   string    `json:"old_role"`
	NewRole   string    `json:"new_role"`
	ChangedBy uuid.UUID `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type InspectionSubmittedEvent struct {
	InspectionID  uuid.UUID `json:"inspection_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	TechnicianID  uuid.UUID `json:"technician_id"`
	FinalStatus   string    `json:"final_status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type StatusPushFailedEvent struct {
	InspectionID  uuid.UUID `json:"inspection_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	FinalStatus   string    `json:"final_status"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failed_at"`
}
