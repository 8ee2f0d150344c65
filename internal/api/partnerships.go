package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// statusResponse acknowledges a lifecycle mutation.
type statusResponse struct {
	Status string `json:"status"`
	CID    string `json:"cid"`
}

// RelationResponse classifies the pair (caller, cid).
type RelationResponse struct {
	State             string `json:"state"`
	Contracted        bool   `json:"contracted"`
	ContractRequested bool   `json:"contract_requested"`
}

// HandleSendRequest handles POST /api/partnerships/{cid}/request.
func (h *Handler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	if err := h.coord.SendRequest(r.Context(), caller, cid); err != nil {
		writeDomainError(w, h.log, err, "failed to send partnership request")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "requested", CID: cid})
}

// HandleAccept handles POST /api/partnerships/{cid}/accept. The caller is
// the responder; cid is the organisation whose request is accepted.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	if err := h.coord.Accept(r.Context(), caller, cid); err != nil {
		writeDomainError(w, h.log, err, "failed to accept partnership request")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "friends", CID: cid})
}

// HandleReject handles POST /api/partnerships/{cid}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	if err := h.coord.Reject(r.Context(), caller, cid); err != nil {
		writeDomainError(w, h.log, err, "failed to reject partnership request")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "rejected", CID: cid})
}

// HandleCancel handles POST /api/partnerships/{cid}/cancel. The caller
// withdraws its own earlier request to cid.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	if err := h.coord.Cancel(r.Context(), caller, cid); err != nil {
		writeDomainError(w, h.log, err, "failed to cancel partnership request")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "cancelled", CID: cid})
}

// HandleCancelFriendship handles DELETE /api/partnerships/{cid}.
func (h *Handler) HandleCancelFriendship(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	if err := h.coord.CancelFriendship(r.Context(), caller, cid); err != nil {
		writeDomainError(w, h.log, err, "failed to cancel partnership")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "none", CID: cid})
}

// HandleRelation handles GET /api/partnerships/{cid}: the partnership
// state of (caller, cid) plus the private-contract classification.
func (h *Handler) HandleRelation(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	cid := chi.URLParam(r, "cid")

	state, err := h.orgs.Relation(r.Context(), caller, cid)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to classify partnership")
		return
	}
	common, err := h.contracts.CommonContractStatus(r.Context(), caller, cid)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to classify contracts")
		return
	}

	writeJSON(w, http.StatusOK, RelationResponse{
		State:             string(state),
		Contracted:        common.Contracted,
		ContractRequested: common.ContractRequested,
	})
}
