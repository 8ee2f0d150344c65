package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fedpact/fedpact-go/internal/audit"
	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/coordinator"
	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/organisations"
)

// OrgHeader carries the calling organisation's cid. Authenticating the
// caller is the deployment's concern; the API trusts the header.
const OrgHeader = "X-Org-ID"

// Handler holds the protocol endpoints.
type Handler struct {
	coord     *coordinator.Coordinator
	orgs      *organisations.Service
	contracts *contracts.Service
	mailbox   *notifications.Mailbox
	audits    *audit.Service
	log       *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	coord *coordinator.Coordinator,
	orgs *organisations.Service,
	cts *contracts.Service,
	mailbox *notifications.Mailbox,
	audits *audit.Service,
	log *slog.Logger,
) *Handler {
	return &Handler{
		coord:     coord,
		orgs:      orgs,
		contracts: cts,
		mailbox:   mailbox,
		audits:    audits,
		log:       logutil.NoopIfNil(log),
	}
}

// caller extracts the calling organisation from the request header. When
// the header is missing it writes the error response and returns false.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	cid := r.Header.Get(OrgHeader)
	if cid == "" {
		WriteBadRequest(w, ReasonUnidentified, OrgHeader+" header is required")
		return "", false
	}
	return cid, true
}

// writeJSON writes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON parses the request body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return false
	}
	return true
}
