package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/coordinator"
	"github.com/fedpact/fedpact-go/internal/store"
)

// CreateContractRequest is the body of POST /api/contracts. The caller is
// the proposer.
type CreateContractRequest struct {
	Type        string            `json:"type"`
	Invitees    []string          `json:"invitees"`
	Description string            `json:"description"`
	Items       []store.ItemGrant `json:"items"`
}

// HandleCreateContract handles POST /api/contracts.
func (h *Handler) HandleCreateContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req CreateContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contract, err := h.coord.ProposeContract(r.Context(), coordinator.ProposeParams{
		Proposer:    caller,
		Type:        store.ContractType(req.Type),
		Invitees:    req.Invitees,
		Description: req.Description,
		Items:       req.Items,
	})
	if err != nil {
		writeDomainError(w, h.log, err, "failed to create contract")
		return
	}
	writeJSON(w, http.StatusCreated, contract)
}

// HandleGetContract handles GET /api/contracts/{ctid}.
func (h *Handler) HandleGetContract(w http.ResponseWriter, r *http.Request) {
	ctid := chi.URLParam(r, "ctid")

	contract, err := h.contracts.Get(r.Context(), ctid)
	if err != nil {
		writeDomainError(w, h.log, err, "contract not found")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// HandleListContracts handles GET /api/contracts: the caller's contracts,
// deleted ones excluded.
func (h *Handler) HandleListContracts(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	cts, err := h.contracts.ListByOrganisation(r.Context(), caller)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to list contracts")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Contract{"contracts": cts})
}

// HandleJoinContract handles POST /api/contracts/{ctid}/join.
func (h *Handler) HandleJoinContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")

	contract, err := h.coord.JoinContract(r.Context(), ctid, caller)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to join contract")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// HandleDeclineContract handles POST /api/contracts/{ctid}/decline.
func (h *Handler) HandleDeclineContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")

	contract, err := h.coord.DeclineContract(r.Context(), ctid, caller)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to decline contract invitation")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// InviteRequest is the body of POST /api/contracts/{ctid}/invite.
type InviteRequest struct {
	CID string `json:"cid"`
}

// HandleInviteToContract handles POST /api/contracts/{ctid}/invite.
func (h *Handler) HandleInviteToContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")
	var req InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CID == "" {
		WriteBadRequest(w, ReasonMissingField, "cid is required")
		return
	}

	contract, err := h.coord.InviteToContract(r.Context(), ctid, caller, req.CID)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to invite organisation")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// HandleLeaveContract handles POST /api/contracts/{ctid}/leave.
func (h *Handler) HandleLeaveContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")

	contract, err := h.coord.LeaveContract(r.Context(), ctid, caller)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to leave contract")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// HandleDeleteContract handles DELETE /api/contracts/{ctid}.
func (h *Handler) HandleDeleteContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")

	contract, err := h.coord.DeleteContract(r.Context(), ctid, caller)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to delete contract")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// ShareItemRequest is the body of PUT /api/contracts/{ctid}/items. The
// grant's owning organisation is the caller.
type ShareItemRequest struct {
	OID      string `json:"oid"`
	UID      string `json:"uid"`
	UserMail string `json:"user_mail"`
	Type     string `json:"type"`
	RW       bool   `json:"rw"`
	Enabled  *bool  `json:"enabled"`
}

// HandleShareItem handles PUT /api/contracts/{ctid}/items.
func (h *Handler) HandleShareItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")
	var req ShareItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OID == "" {
		WriteBadRequest(w, ReasonMissingField, "oid is required")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	contract, err := h.coord.ShareItem(r.Context(), ctid, store.ItemGrant{
		OID:      req.OID,
		CID:      caller,
		UID:      req.UID,
		UserMail: req.UserMail,
		Type:     req.Type,
		RW:       req.RW,
		Enabled:  enabled,
	})
	if err != nil {
		writeDomainError(w, h.log, err, "failed to share item")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// HandleSetItemEnabled handles POST /api/contracts/{ctid}/items/{oid}/enable
// and .../disable.
func (h *Handler) HandleSetItemEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := h.caller(w, r)
		if !ok {
			return
		}
		ctid := chi.URLParam(r, "ctid")
		oid := chi.URLParam(r, "oid")

		contract, err := h.coord.SetItemEnabled(r.Context(), ctid, caller, oid, enabled)
		if err != nil {
			writeDomainError(w, h.log, err, "failed to toggle item grant")
			return
		}
		writeJSON(w, http.StatusOK, contract)
	}
}

// HandleUnshareItem handles DELETE /api/contracts/{ctid}/items/{oid}.
func (h *Handler) HandleUnshareItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctid := chi.URLParam(r, "ctid")
	oid := chi.URLParam(r, "oid")

	contract, err := h.coord.UnshareItem(r.Context(), ctid, caller, oid)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to unshare item")
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// ResolveResponse wraps the grants a gateway may expose.
type ResolveResponse struct {
	Items []contracts.ResolvedItem `json:"items"`
}

// HandleResolveItems handles
// GET /api/contracts/{ctid}/gateways/{agid}/items: the enabled grants of
// the contract whose items are served by the given gateway.
func (h *Handler) HandleResolveItems(w http.ResponseWriter, r *http.Request) {
	ctid := chi.URLParam(r, "ctid")
	agid := chi.URLParam(r, "agid")

	items, err := h.contracts.ResolveItemsForGateway(r.Context(), ctid, agid)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to resolve items")
		return
	}
	if items == nil {
		items = []contracts.ResolvedItem{}
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Items: items})
}
