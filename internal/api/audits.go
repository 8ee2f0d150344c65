package api

import (
	"net/http"

	"github.com/fedpact/fedpact-go/internal/store"
)

// AuditsResponse wraps an audit trail query result.
type AuditsResponse struct {
	Audits []*store.AuditRecord `json:"audits"`
}

const defaultAuditDays = 30

// HandleListAudits handles GET /api/audits with optional target and days
// query parameters. The trail queried is the caller's own.
func (h *Handler) HandleListAudits(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	days, err := queryInt(q.Get("days"), defaultAuditDays)
	if err != nil {
		WriteBadRequest(w, ReasonInvalidField, "days must be an integer")
		return
	}

	recs, err := h.audits.List(r.Context(), caller, q.Get("target"), days)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to list audit records")
		return
	}
	if recs == nil {
		recs = []*store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, AuditsResponse{Audits: recs})
}
