package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roadworthy/inspection-platform/pkg/config"
)

func TestSend_PostsEvent(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/log" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var ev Event
		json.NewDecoder(r.Body).Decode(&ev)
		received <- ev
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(config.AuditConfig{CollectorURL: srv.URL, EmitTimeout: 2 * time.Second})

	if err := n.send(context.Background(), "AuthService", "user.registered", LevelInfo, "alice registered"); err != nil {
		t.Fatalf("send returned error: %v", err)
	}

	ev := <-received
	if ev.Service != "AuthService" || ev.Event != "user.registered" || ev.Level != LevelInfo {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Timestamp == "" {
		t.Fatal("expected timestamp to be set")
	}
}

func TestSend_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(config.AuditConfig{CollectorURL: srv.URL, EmitTimeout: 2 * time.Second})
	if err := n.send(context.Background(), "AuthService", "x", LevelInfo, "m"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestEmit_NeverPanicsOnDeadCollector(t *testing.T) {
	n := New(config.AuditConfig{CollectorURL: "http://127.0.0.1:1", EmitTimeout: 100 * time.Millisecond})

	// Fire-and-forget against a closed port must not affect the caller.
	n.Emit(context.Background(), "InspectionService", "inspection.submitted", LevelInfo, "ok")
	time.Sleep(200 * time.Millisecond)
}

func TestEmit_NilAndUnconfiguredAreNoops(t *testing.T) {
	var n *Notifier
	n.Emit(context.Background(), "svc", "ev", LevelInfo, "msg")

	empty := New(config.AuditConfig{})
	empty.Emit(context.Background(), "svc", "ev", LevelInfo, "msg")
}
