package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fedpact/fedpact-go/internal/store"
)

// NotificationsResponse wraps a mailbox page.
type NotificationsResponse struct {
	Notifications []*store.Notification `json:"notifications"`
}

// HandleListNotifications handles GET /api/notifications with optional
// unread, limit and offset query parameters.
func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	unreadOnly := q.Get("unread") == "true"
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		WriteBadRequest(w, ReasonInvalidField, "limit must be an integer")
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		WriteBadRequest(w, ReasonInvalidField, "offset must be an integer")
		return
	}

	ns, err := h.mailbox.List(r.Context(), []string{caller}, unreadOnly, limit, offset)
	if err != nil {
		writeDomainError(w, h.log, err, "failed to list notifications")
		return
	}
	if ns == nil {
		ns = []*store.Notification{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: ns})
}

// HandleMarkNotificationRead handles POST /api/notifications/{id}/read.
func (h *Handler) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.caller(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.mailbox.SetRead(r.Context(), id, true); err != nil {
		writeDomainError(w, h.log, err, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read", "notification_id": id})
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
