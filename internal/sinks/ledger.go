package sinks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/sinkcfg"
	"github.com/fedpact/fedpact-go/internal/store"
)

// LedgerSink mirrors contract lifecycle events to an external ledger.
// Every call is individually guarded: when the sink is disabled it
// short-circuits to a no-op, and failures are logged, never thrown.
type LedgerSink interface {
	ContractCreated(ctx context.Context, c *store.Contract)
	ContractAccepted(ctx context.Context, ctid, cid string)
	ContractRejected(ctx context.Context, ctid, cid string)
	ContractRemoved(ctx context.Context, ctid string)
	ItemAdded(ctx context.Context, ctid string, grant store.ItemGrant)
	ItemRemoved(ctx context.Context, ctid, oid string)
}

// LedgerSettings configures the ledger mirror, decoded from [sinks.ledger].
type LedgerSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

// ApplyDefaults sets default values for unset fields.
func (s *LedgerSettings) ApplyDefaults() {
	if s.TimeoutMS == 0 {
		s.TimeoutMS = 10000
	}
}

// HTTPLedgerSink mirrors contract events over HTTP.
type HTTPLedgerSink struct {
	settings   LedgerSettings
	httpClient *http.Client
	log        *slog.Logger
}

// NewLedgerSink creates a ledger sink from its settings table.
func NewLedgerSink(settings map[string]any, log *slog.Logger) (*HTTPLedgerSink, error) {
	var s LedgerSettings
	if err := sinkcfg.Decode(settings, &s); err != nil {
		return nil, fmt.Errorf("failed to decode ledger sink settings: %w", err)
	}
	if s.Enabled && s.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required when the ledger sink is enabled")
	}

	return &HTTPLedgerSink{
		settings:   s,
		httpClient: &http.Client{Timeout: time.Duration(s.TimeoutMS) * time.Millisecond},
		log:        logutil.NoopIfNil(log),
	}, nil
}

// send guards every mirror call: disabled short-circuits, failures are
// logged only.
func (l *HTTPLedgerSink) send(ctx context.Context, action string, parts []string, payload any) {
	if !l.settings.Enabled {
		return
	}

	target, err := url.JoinPath(l.settings.BaseURL, parts...)
	if err != nil {
		l.log.Warn("failed to build ledger URL", "action", action, "error", err)
		return
	}
	if err := postJSON(ctx, l.httpClient, target, payload); err != nil {
		l.log.Warn("ledger mirror call failed", "action", action, "error", err)
	}
}

type ledgerContractPayload struct {
	CTID          string            `json:"ctid"`
	Type          string            `json:"type"`
	Organisations []string          `json:"organisations"`
	Pending       []string          `json:"pending_organisations"`
	Items         []store.ItemGrant `json:"items"`
}

type ledgerMemberPayload struct {
	CID string `json:"cid"`
}

func (l *HTTPLedgerSink) ContractCreated(ctx context.Context, c *store.Contract) {
	l.send(ctx, "contract_created", []string{"contracts"}, ledgerContractPayload{
		CTID:          c.CTID,
		Type:          string(c.Type),
		Organisations: c.Organisations,
		Pending:       c.PendingOrganisations,
		Items:         c.Items,
	})
}

func (l *HTTPLedgerSink) ContractAccepted(ctx context.Context, ctid, cid string) {
	l.send(ctx, "contract_accepted", []string{"contracts", ctid, "accept"}, ledgerMemberPayload{CID: cid})
}

func (l *HTTPLedgerSink) ContractRejected(ctx context.Context, ctid, cid string) {
	l.send(ctx, "contract_rejected", []string{"contracts", ctid, "reject"}, ledgerMemberPayload{CID: cid})
}

func (l *HTTPLedgerSink) ContractRemoved(ctx context.Context, ctid string) {
	l.send(ctx, "contract_removed", []string{"contracts", ctid, "remove"}, struct{}{})
}

func (l *HTTPLedgerSink) ItemAdded(ctx context.Context, ctid string, grant store.ItemGrant) {
	l.send(ctx, "item_added", []string{"contracts", ctid, "items"}, grant)
}

func (l *HTTPLedgerSink) ItemRemoved(ctx context.Context, ctid, oid string) {
	l.send(ctx, "item_removed", []string{"contracts", ctid, "items", oid, "remove"}, struct{}{})
}
