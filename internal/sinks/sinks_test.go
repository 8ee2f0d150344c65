package sinks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fedpact/fedpact-go/internal/store"
)

func TestGatewaySinkNotify(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, err := NewGatewaySink(map[string]any{"base_url": srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewGatewaySink: %v", err)
	}

	if err := sink.NotifyPartnersChanged(context.Background(), "ag-1"); err != nil {
		t.Fatalf("NotifyPartnersChanged: %v", err)
	}
	if got, want := gotPath.Load(), "/gateways/ag-1/partners-changed"; got != want {
		t.Errorf("path = %v, want %v", got, want)
	}
}

func TestGatewaySinkServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink, err := NewGatewaySink(map[string]any{"base_url": srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewGatewaySink: %v", err)
	}
	if err := sink.NotifyPartnersChanged(context.Background(), "ag-1"); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestLedgerSinkDisabledIsNoop(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	sink, err := NewLedgerSink(map[string]any{"enabled": false, "base_url": srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewLedgerSink: %v", err)
	}

	sink.ContractCreated(context.Background(), &store.Contract{CTID: "ct-1"})
	sink.ContractRemoved(context.Background(), "ct-1")

	if calls.Load() != 0 {
		t.Errorf("disabled sink made %d calls, want 0", calls.Load())
	}
}

func TestLedgerSinkEnabledRequiresBaseURL(t *testing.T) {
	if _, err := NewLedgerSink(map[string]any{"enabled": true}, nil); err == nil {
		t.Error("expected error when enabled without base_url")
	}
}

func TestLedgerSinkMirrorsEvents(t *testing.T) {
	type call struct {
		path string
		body map[string]any
	}
	calls := make(chan call, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls <- call{path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewLedgerSink(map[string]any{"enabled": true, "base_url": srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewLedgerSink: %v", err)
	}

	ctx := context.Background()
	sink.ContractCreated(ctx, &store.Contract{CTID: "ct-1", Type: store.ContractTypePrivate, Organisations: []string{"org-a"}})
	sink.ContractAccepted(ctx, "ct-1", "org-b")
	sink.ItemRemoved(ctx, "ct-1", "item-1")

	created := <-calls
	if created.path != "/contracts" {
		t.Errorf("created path = %q", created.path)
	}
	if created.body["ctid"] != "ct-1" {
		t.Errorf("created payload ctid = %v", created.body["ctid"])
	}

	accepted := <-calls
	if accepted.path != "/contracts/ct-1/accept" {
		t.Errorf("accepted path = %q", accepted.path)
	}
	if accepted.body["cid"] != "org-b" {
		t.Errorf("accepted payload cid = %v", accepted.body["cid"])
	}

	removed := <-calls
	if removed.path != "/contracts/ct-1/items/item-1/remove" {
		t.Errorf("item removed path = %q", removed.path)
	}
}

func TestLedgerSinkSwallowsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewLedgerSink(map[string]any{"enabled": true, "base_url": srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewLedgerSink: %v", err)
	}

	// Must not panic or surface the failure.
	sink.ContractRemoved(context.Background(), "ct-1")
}

func TestMetricsSinkCounts(t *testing.T) {
	sink, err := NewMetricsSink(map[string]any{"enabled": true}, nil)
	if err != nil {
		t.Fatalf("NewMetricsSink: %v", err)
	}

	ctx := context.Background()
	sink.Count(ctx, "partnership_request")
	sink.Count(ctx, "partnership_request")
	sink.Count(ctx, "contract_create")
	sink.Count(ctx, "")
	sink.Count(ctx, "bad/name")

	snap := sink.Snapshot()
	if snap["partnership_request"] != 2 {
		t.Errorf("partnership_request = %d, want 2", snap["partnership_request"])
	}
	if snap["contract_create"] != 1 {
		t.Errorf("contract_create = %d, want 1", snap["contract_create"])
	}
	if len(snap) != 2 {
		t.Errorf("snapshot has %d counters, want 2", len(snap))
	}
}

func TestMetricsSinkDisabled(t *testing.T) {
	sink, err := NewMetricsSink(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("NewMetricsSink: %v", err)
	}
	sink.Count(context.Background(), "partnership_request")
	if len(sink.Snapshot()) != 0 {
		t.Error("disabled sink recorded counters")
	}
}
