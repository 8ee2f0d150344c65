package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fedpact/fedpact-go/internal/api"
	"github.com/fedpact/fedpact-go/internal/audit"
	"github.com/fedpact/fedpact-go/internal/cache/memory"
	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/coordinator"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/organisations"
	"github.com/fedpact/fedpact-go/internal/registry"
	"github.com/fedpact/fedpact-go/internal/sinks"
	"github.com/fedpact/fedpact-go/internal/store"
	jsondriver "github.com/fedpact/fedpact-go/internal/store/json"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

type env struct {
	router http.Handler
	orgs   *organisations.Service
	cts    *contracts.Service
	reg    *registry.MemoryRegistry
}

func newEnv(t *testing.T) *env {
	t.Helper()

	driver, err := jsondriver.NewDriver(&store.DriverConfig{Driver: "json", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := driver.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { driver.Close() })

	c := memory.New(time.Minute, time.Minute)
	t.Cleanup(func() { c.Close() })

	reg := registry.NewMemoryRegistry()
	metrics, err := sinks.NewMetricsSink(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("NewMetricsSink: %v", err)
	}
	ledger, err := sinks.NewLedgerSink(map[string]any{}, nil)
	if err != nil {
		t.Fatalf("NewLedgerSink: %v", err)
	}

	orgs := organisations.New(driver, testLogger)
	cts := contracts.New(driver, reg, c, testLogger)
	mailbox := notifications.NewMailbox(driver, testLogger)
	audits := audit.New(driver, testLogger)
	coord := coordinator.New(orgs, cts, mailbox, audits, sinks.NoopGatewaySink{}, ledger, metrics, testLogger)

	h := api.NewHandler(coord, orgs, cts, mailbox, audits, testLogger)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/organisations", func(r chi.Router) {
			r.Post("/", h.HandleCreateOrganisation)
			r.Get("/{cid}", h.HandleGetOrganisation)
		})
		r.Route("/partnerships", func(r chi.Router) {
			r.Get("/{cid}", h.HandleRelation)
			r.Post("/{cid}/request", h.HandleSendRequest)
			r.Post("/{cid}/accept", h.HandleAccept)
			r.Delete("/{cid}", h.HandleCancelFriendship)
		})
		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", h.HandleCreateContract)
			r.Get("/{ctid}", h.HandleGetContract)
			r.Post("/{ctid}/join", h.HandleJoinContract)
			r.Put("/{ctid}/items", h.HandleShareItem)
			r.Get("/{ctid}/gateways/{agid}/items", h.HandleResolveItems)
		})
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.HandleListNotifications)
			r.Post("/{id}/read", h.HandleMarkNotificationRead)
		})
		r.Get("/audits", h.HandleListAudits)
	})

	return &env{router: r, orgs: orgs, cts: cts, reg: reg}
}

func (e *env) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set(api.OrgHeader, caller)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) mustOrg(t *testing.T, cid, name string) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/organisations", "", api.CreateOrganisationRequest{CID: cid, Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create organisation %s: %d: %s", cid, w.Code, w.Body.String())
	}
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) api.ErrorEnvelope {
	t.Helper()
	var env api.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v: %s", err, w.Body.String())
	}
	return env
}

func TestPartnershipEndpoints(t *testing.T) {
	e := newEnv(t)
	e.mustOrg(t, "org-a", "Acme")
	e.mustOrg(t, "org-b", "Globex")

	if w := e.do(t, http.MethodPost, "/api/partnerships/org-b/request", "org-a", nil); w.Code != http.StatusOK {
		t.Fatalf("request: %d: %s", w.Code, w.Body.String())
	}

	// Duplicate request conflicts with a deterministic reason code.
	w := e.do(t, http.MethodPost, "/api/partnerships/org-b/request", "org-a", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate request: %d, want 409", w.Code)
	}
	if env := decodeErr(t, w); env.Error.ReasonCode != api.ReasonConflict {
		t.Errorf("reason_code = %q", env.Error.ReasonCode)
	}

	if w := e.do(t, http.MethodPost, "/api/partnerships/org-a/accept", "org-b", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/partnerships/org-b", "org-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("relation: %d", w.Code)
	}
	var rel api.RelationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rel); err != nil {
		t.Fatalf("decode relation: %v", err)
	}
	if rel.State != "friends" {
		t.Errorf("state = %q, want friends", rel.State)
	}

	if w := e.do(t, http.MethodDelete, "/api/partnerships/org-b", "org-a", nil); w.Code != http.StatusOK {
		t.Fatalf("cancel friendship: %d", w.Code)
	}
}

func TestPartnershipRequiresCallerHeader(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/api/partnerships/org-b/request", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing header: %d, want 400", w.Code)
	}
	if env := decodeErr(t, w); env.Error.ReasonCode != api.ReasonUnidentified {
		t.Errorf("reason_code = %q", env.Error.ReasonCode)
	}
}

func TestPartnershipUnknownOrgIs404(t *testing.T) {
	e := newEnv(t)
	e.mustOrg(t, "org-a", "Acme")

	w := e.do(t, http.MethodPost, "/api/partnerships/org-ghost/request", "org-a", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown org: %d, want 404", w.Code)
	}
}

func TestContractEndpoints(t *testing.T) {
	e := newEnv(t)
	e.mustOrg(t, "org-a", "Acme")
	e.mustOrg(t, "org-b", "Globex")
	e.reg.Add("item-1", "gw-b", "org-a")

	w := e.do(t, http.MethodPost, "/api/contracts", "org-a", api.CreateContractRequest{
		Invitees:    []string{"org-b"},
		Description: "telemetry exchange",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create contract: %d: %s", w.Code, w.Body.String())
	}
	var contract store.Contract
	if err := json.Unmarshal(w.Body.Bytes(), &contract); err != nil {
		t.Fatalf("decode contract: %v", err)
	}
	if contract.Status != store.ContractPending {
		t.Errorf("status = %s, want pending", contract.Status)
	}

	if w := e.do(t, http.MethodPost, "/api/contracts/"+contract.CTID+"/join", "org-b", nil); w.Code != http.StatusOK {
		t.Fatalf("join: %d: %s", w.Code, w.Body.String())
	}

	if w := e.do(t, http.MethodPut, "/api/contracts/"+contract.CTID+"/items", "org-a", api.ShareItemRequest{
		OID: "item-1", Type: "file", RW: true,
	}); w.Code != http.StatusOK {
		t.Fatalf("share item: %d: %s", w.Code, w.Body.String())
	}

	// Sharing an item the registry attributes to someone else conflicts.
	e.reg.Add("item-2", "gw-b", "org-b")
	w = e.do(t, http.MethodPut, "/api/contracts/"+contract.CTID+"/items", "org-a", api.ShareItemRequest{OID: "item-2"})
	if w.Code != http.StatusConflict {
		t.Fatalf("foreign item: %d, want 409", w.Code)
	}
	if env := decodeErr(t, w); env.Error.ReasonCode != api.ReasonOwnershipMismatch {
		t.Errorf("reason_code = %q", env.Error.ReasonCode)
	}

	w = e.do(t, http.MethodGet, "/api/contracts/"+contract.CTID+"/gateways/gw-b/items", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: %d: %s", w.Code, w.Body.String())
	}
	var resolved api.ResolveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolve: %v", err)
	}
	if len(resolved.Items) != 1 || resolved.Items[0].OID != "item-1" || !resolved.Items[0].RW {
		t.Errorf("resolved = %+v", resolved.Items)
	}

	if w := e.do(t, http.MethodGet, "/api/contracts/ct-missing", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown contract: %d, want 404", w.Code)
	}
}

func TestNotificationAndAuditEndpoints(t *testing.T) {
	e := newEnv(t)
	e.mustOrg(t, "org-a", "Acme")
	e.mustOrg(t, "org-b", "Globex")

	if w := e.do(t, http.MethodPost, "/api/partnerships/org-b/request", "org-a", nil); w.Code != http.StatusOK {
		t.Fatalf("request: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/partnerships/org-a/accept", "org-b", nil); w.Code != http.StatusOK {
		t.Fatalf("accept: %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/api/notifications/?unread=true", "org-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list notifications: %d", w.Code)
	}
	var page api.NotificationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(page.Notifications) == 0 {
		t.Fatal("expected unread notifications for org-a")
	}

	id := page.Notifications[0].ID
	if w := e.do(t, http.MethodPost, "/api/notifications/"+id+"/read", "org-a", nil); w.Code != http.StatusOK {
		t.Fatalf("mark read: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/notifications/n-missing/read", "org-a", nil); w.Code != http.StatusNotFound {
		t.Errorf("mark read missing: %d, want 404", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/audits?days=1", "org-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list audits: %d", w.Code)
	}
	var audits api.AuditsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &audits); err != nil {
		t.Fatalf("decode audits: %v", err)
	}
	if len(audits.Audits) != 1 {
		t.Errorf("audit records = %d, want 1", len(audits.Audits))
	}

	if w := e.do(t, http.MethodGet, "/api/audits?days=x", "org-a", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid days: %d, want 400", w.Code)
	}
}
