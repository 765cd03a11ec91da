package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/enums"
)

func TestEmitDeliversEnvelope(t *testing.T) {
	t.Parallel()

	received := make(chan Envelope, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decoding envelope: %v", err)
		}
		received <- env
	}))
	t.Cleanup(server.Close)

	emitter := NewEmitter(config.WebhookConfig{URL: server.URL}, nil)
	emitter.Emit(context.Background(), enums.WebhookTaskCreated, map[string]any{"taskId": 7})

	env := <-received
	if env.Event != enums.WebhookTaskCreated {
		t.Fatalf("unexpected event %s", env.Event)
	}
	if env.EventID == "" {
		t.Fatal("expected a generated event id")
	}
	if env.OccurredAt.IsZero() {
		t.Fatal("expected occurredAt to be stamped")
	}
}

func TestEmitUnconfiguredIsNoOp(t *testing.T) {
	t.Parallel()

	emitter := NewEmitter(config.WebhookConfig{}, nil)
	if emitter.Enabled() {
		t.Fatal("emitter without URL must be disabled")
	}
	// Must not panic or attempt delivery.
	emitter.Emit(context.Background(), enums.WebhookDatasetCreated, nil)
}

func TestEmitFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	emitter := NewEmitter(config.WebhookConfig{URL: server.URL}, nil)
	// Emit has no error return; a rejected delivery must be swallowed.
	emitter.Emit(context.Background(), enums.WebhookTaskUpdated, map[string]any{"taskId": 1})
}
