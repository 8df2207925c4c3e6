// Package notifier emits audit events to an external collector. The collector
// is a pure side channel: its unavailability never affects the outcome of the
// operation being audited.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roadworthy/inspection-platform/pkg/config"
	"github.com/roadworthy/inspection-platform/pkg/logger"
)

type Event struct {
	Service   string `json:"service"`
	Event     string `json:"event"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

type Notifier struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func New(cfg config.AuditConfig) *Notifier {
	timeout := cfg.EmitTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		url:     cfg.CollectorURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Emit attempts one notification without blocking the caller. Every failure
// (timeout, refused connection, non-2xx) is logged locally and dropped.
func (n *Notifier) Emit(ctx context.Context, service, event, level, message string) {
	if n == nil || n.url == "" {
		return
	}

	// Detached from the request context: the audit attempt outlives the
	// response and is bounded by its own timeout.
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.send(sendCtx, service, event, level, message); err != nil {
			logger.Warn("audit emit failed", "event", event, "error", err)
		}
	}()
}

func (n *Notifier) send(ctx context.Context, service, event, level, message string) error {
	payload, err := json.Marshal(Event{
		Service:   service,
		Event:     event,
		Level:     level,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url+"/log", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
