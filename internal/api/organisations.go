package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fedpact/fedpact-go/internal/store"
)

// CreateOrganisationRequest is the body of POST /api/organisations.
type CreateOrganisationRequest struct {
	CID   string   `json:"cid"`
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}

// HandleCreateOrganisation handles POST /api/organisations.
func (h *Handler) HandleCreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganisationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CID == "" {
		WriteBadRequest(w, ReasonMissingField, "cid is required")
		return
	}
	if req.Name == "" {
		WriteBadRequest(w, ReasonMissingField, "name is required")
		return
	}

	org, err := h.orgs.Create(r.Context(), req.CID, req.Name, req.Nodes)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to create organisation")
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// HandleGetOrganisation handles GET /api/organisations/{cid}.
func (h *Handler) HandleGetOrganisation(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	org, err := h.orgs.Get(r.Context(), cid)
	if err != nil {
		writeDomainError(w, h.log, err, "organisation not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// HandleListOrganisations handles GET /api/organisations.
func (h *Handler) HandleListOrganisations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		writeDomainError(w, h.log, err, "failed to list organisations")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]*store.Organisation{"organisations": orgs})
}

// AddNodeRequest is the body of POST /api/organisations/{cid}/nodes.
type AddNodeRequest struct {
	AGID string `json:"agid"`
}

// HandleAddNode handles POST /api/organisations/{cid}/nodes.
func (h *Handler) HandleAddNode(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	var req AddNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AGID == "" {
		WriteBadRequest(w, ReasonMissingField, "agid is required")
		return
	}

	if err := h.orgs.AddNode(r.Context(), cid, req.AGID); err != nil {
		writeDomainError(w, h.log, err, "failed to register gateway node")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "registered", CID: cid})
}

// HandleRemoveNode handles DELETE /api/organisations/{cid}/nodes/{agid}.
func (h *Handler) HandleRemoveNode(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	agid := chi.URLParam(r, "agid")

	if err := h.orgs.RemoveNode(r.Context(), cid, agid); err != nil {
		writeDomainError(w, h.log, err, "failed to remove gateway node")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "removed", CID: cid})
}
