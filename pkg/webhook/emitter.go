package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/enums"
	"github.com/markbang/cyop/pkg/logger"
)

// Envelope is the stable payload delivered to the configured webhook URL.
type Envelope struct {
	EventID    string                 `json:"eventId"`
	Event      enums.WebhookEventType `json:"event"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       any                    `json:"data"`
}

// Emitter posts domain events to an optional outbound webhook. Delivery is
// best-effort: an unconfigured URL is a silent no-op and failures are logged,
// never returned to the triggering operation.
type Emitter struct {
	url        string
	httpClient *http.Client
	logg       *logger.Logger
	now        func() time.Time
}

func NewEmitter(cfg config.WebhookConfig, logg *logger.Logger) *Emitter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Emitter{
		url:        strings.TrimSpace(cfg.URL),
		httpClient: &http.Client{Timeout: timeout},
		logg:       logg,
		now:        time.Now,
	}
}

// Enabled reports whether a delivery URL is configured.
func (e *Emitter) Enabled() bool {
	return e != nil && e.url != ""
}

// Emit delivers one event envelope. Never returns an error; see Emitter.
func (e *Emitter) Emit(ctx context.Context, event enums.WebhookEventType, data any) {
	if !e.Enabled() {
		return
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		Event:      event,
		OccurredAt: e.now().UTC(),
		Data:       data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		e.logError(ctx, "webhook payload encode failed", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		e.logError(ctx, "webhook request build failed", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logError(ctx, "webhook delivery failed", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logError(ctx, "webhook delivery rejected", fmt.Errorf("status %s", resp.Status))
	}
}

func (e *Emitter) logError(ctx context.Context, msg string, err error) {
	if e.logg == nil {
		return
	}
	e.logg.Warn(e.logg.WithField(ctx, "webhook_error", err.Error()), msg)
}
