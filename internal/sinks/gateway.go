// Package sinks implements the external fire-and-forget collaborators:
// gateway notification, ledger mirroring and metrics. Sink failures are
// logged with context and never propagated; no sink call may abort the
// primary state transition that triggered it.
package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/sinkcfg"
)

// GatewaySink notifies a gateway that the partner list visible to it changed.
type GatewaySink interface {
	// NotifyPartnersChanged is best-effort: implementations log failures
	// and return them for the caller's side-effect accounting only.
	NotifyPartnersChanged(ctx context.Context, agid string) error
}

// GatewaySettings configures the HTTP gateway sink, decoded from
// [sinks.gateway].
type GatewaySettings struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// ApplyDefaults sets default values for unset fields.
func (s *GatewaySettings) ApplyDefaults() {
	if s.TimeoutMS == 0 {
		s.TimeoutMS = 5000
	}
}

// HTTPGatewaySink posts partner-change events to the gateway controller.
type HTTPGatewaySink struct {
	settings   GatewaySettings
	httpClient *http.Client
	log        *slog.Logger
}

// NewGatewaySink creates a gateway sink from its settings table.
func NewGatewaySink(settings map[string]any, log *slog.Logger) (*HTTPGatewaySink, error) {
	var s GatewaySettings
	if err := sinkcfg.Decode(settings, &s); err != nil {
		return nil, fmt.Errorf("failed to decode gateway sink settings: %w", err)
	}
	if s.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required for the gateway sink")
	}

	return &HTTPGatewaySink{
		settings:   s,
		httpClient: &http.Client{Timeout: time.Duration(s.TimeoutMS) * time.Millisecond},
		log:        logutil.NoopIfNil(log),
	}, nil
}

// NotifyPartnersChanged posts to /gateways/{agid}/partners-changed.
func (g *HTTPGatewaySink) NotifyPartnersChanged(ctx context.Context, agid string) error {
	notifyURL, err := url.JoinPath(g.settings.BaseURL, "gateways", url.PathEscape(agid), "partners-changed")
	if err != nil {
		g.log.Warn("failed to build gateway notify URL", "agid", agid, "error", err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, notifyURL, nil)
	if err != nil {
		g.log.Warn("failed to create gateway notify request", "agid", agid, "error", err)
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.Warn("gateway notify failed", "agid", agid, "error", err)
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("gateway notify rejected with status %d", resp.StatusCode)
		g.log.Warn("gateway notify rejected", "agid", agid, "status", resp.StatusCode)
		return err
	}
	return nil
}

// NoopGatewaySink discards all notifications, used when no gateway
// controller is configured.
type NoopGatewaySink struct{}

func (NoopGatewaySink) NotifyPartnersChanged(ctx context.Context, agid string) error { return nil }

// postJSON is shared by the HTTP sinks.
func postJSON(ctx context.Context, client *http.Client, target string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("rejected with status %d", resp.StatusCode)
	}
	return nil
}
