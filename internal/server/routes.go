package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fedpact/fedpact-go/internal/api"
)

// setupRoutes builds the router with always-on transport middleware and
// the API endpoints.
func (s *Server) setupRoutes(h *api.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(RequestLoggerMiddleware(s.logger))
	r.Use(AccessLogMiddleware(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/organisations", func(r chi.Router) {
			r.Post("/", h.HandleCreateOrganisation)
			r.Get("/", h.HandleListOrganisations)
			r.Get("/{cid}", h.HandleGetOrganisation)
			r.Post("/{cid}/nodes", h.HandleAddNode)
			r.Delete("/{cid}/nodes/{agid}", h.HandleRemoveNode)
		})

		r.Route("/partnerships", func(r chi.Router) {
			r.Get("/{cid}", h.HandleRelation)
			r.Post("/{cid}/request", h.HandleSendRequest)
			r.Post("/{cid}/accept", h.HandleAccept)
			r.Post("/{cid}/reject", h.HandleReject)
			r.Post("/{cid}/cancel", h.HandleCancel)
			r.Delete("/{cid}", h.HandleCancelFriendship)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", h.HandleCreateContract)
			r.Get("/", h.HandleListContracts)
			r.Get("/{ctid}", h.HandleGetContract)
			r.Delete("/{ctid}", h.HandleDeleteContract)
			r.Post("/{ctid}/join", h.HandleJoinContract)
			r.Post("/{ctid}/decline", h.HandleDeclineContract)
			r.Post("/{ctid}/invite", h.HandleInviteToContract)
			r.Post("/{ctid}/leave", h.HandleLeaveContract)
			r.Put("/{ctid}/items", h.HandleShareItem)
			r.Post("/{ctid}/items/{oid}/enable", h.HandleSetItemEnabled(true))
			r.Post("/{ctid}/items/{oid}/disable", h.HandleSetItemEnabled(false))
			r.Delete("/{ctid}/items/{oid}", h.HandleUnshareItem)
			r.Get("/{ctid}/gateways/{agid}/items", h.HandleResolveItems)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.HandleListNotifications)
			r.Post("/{id}/read", h.HandleMarkNotificationRead)
		})

		r.Get("/audits", h.HandleListAudits)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
