// Package notifications implements the per-organisation mailbox of
// asynchronous cross-organisation events with a response lifecycle.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/store"
)

// ErrTerminalStatus is returned when a transition would move a notification
// out of a terminal status (e.g. RESPONDED back to WAITING).
var ErrTerminalStatus = errors.New("notification status is terminal")

// NewNotification is the caller-supplied part of a notification.
type NewNotification struct {
	Owner  string
	Actor  store.Entity
	Target store.Entity
	Object store.Entity
	Type   events.Type

	// Status applies to informational notifications only (INFO, ACCEPTED,
	// REJECTED). Request-type notifications always start WAITING. Empty
	// defaults to INFO for informational kinds.
	Status store.NotificationStatus
}

// Mailbox manages notification records for all organisations. A mailbox of
// one organisation is the set of notifications with owner = cid.
type Mailbox struct {
	store store.NotificationStore
	log   *slog.Logger
	now   func() time.Time
}

// NewMailbox creates a mailbox service.
func NewMailbox(st store.NotificationStore, log *slog.Logger) *Mailbox {
	return &Mailbox{
		store: st,
		log:   logutil.NoopIfNil(log),
		now:   time.Now,
	}
}

// Create assigns an id and stores the notification. Request-type events
// start WAITING; informational events are created directly in a terminal
// status and never transition again.
func (m *Mailbox) Create(ctx context.Context, n NewNotification) (*store.Notification, error) {
	status := n.Status
	if events.IsRequest(n.Type) {
		status = store.NotificationWaiting
	} else if status == "" || status == store.NotificationWaiting {
		status = store.NotificationInfo
	}

	rec := &store.Notification{
		ID:        uuid.New().String(),
		Owner:     n.Owner,
		Actor:     n.Actor,
		Target:    n.Target,
		Object:    n.Object,
		Type:      n.Type,
		Status:    status,
		IsUnread:  true,
		CreatedAt: m.now(),
	}

	if err := m.store.CreateNotification(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return rec, nil
}

// FindActive returns notifications owned by any of owners matching the given
// status, type and target id. Empty targetID matches any target. This is the
// read used to discover notifications that must be transitioned as a side
// effect of a lifecycle operation.
func (m *Mailbox) FindActive(ctx context.Context, owners []string, status store.NotificationStatus, typ events.Type, targetID string) ([]*store.Notification, error) {
	all, err := m.store.ListNotificationsByOwners(ctx, owners)
	if err != nil {
		return nil, err
	}

	var out []*store.Notification
	for _, n := range all {
		if n.Status != status || n.Type != typ {
			continue
		}
		if targetID != "" && n.Target.ID != targetID {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// List returns the mailbox contents newest first. With unreadOnly, a
// notification is included when it is unread OR still WAITING: an open
// request stays active regardless of its read flag.
func (m *Mailbox) List(ctx context.Context, owners []string, unreadOnly bool, limit, offset int) ([]*store.Notification, error) {
	all, err := m.store.ListNotificationsByOwners(ctx, owners)
	if err != nil {
		return nil, err
	}

	filtered := all
	if unreadOnly {
		filtered = nil
		for _, n := range all {
			if n.IsUnread || n.Status == store.NotificationWaiting {
				filtered = append(filtered, n)
			}
		}
	}

	// Negative paging values are treated as absent.
	if offset < 0 {
		offset = 0
	}
	if offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// SetStatus transitions a notification. Terminal statuses are final:
// re-applying the same terminal status is a no-op, any other transition out
// of a terminal status returns ErrTerminalStatus. WAITING can never be
// re-entered.
func (m *Mailbox) SetStatus(ctx context.Context, id string, status store.NotificationStatus) error {
	n, err := m.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}

	if n.Status == status {
		return nil
	}
	if n.Status.Terminal() || status == store.NotificationWaiting {
		return ErrTerminalStatus
	}

	n.Status = status
	return m.store.UpdateNotification(ctx, n)
}

// SetRead updates the read flag.
func (m *Mailbox) SetRead(ctx context.Context, id string, read bool) error {
	n, err := m.store.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	n.IsUnread = !read
	return m.store.UpdateNotification(ctx, n)
}

// CloseRequests moves every WAITING notification of the given type and
// target owned by owners to RESPONDED and marks it read. Each matched record
// is updated independently: a failure on one is logged and does not halt the
// remaining matches. Returns the number of records transitioned.
func (m *Mailbox) CloseRequests(ctx context.Context, owners []string, typ events.Type, targetID string) int {
	matched, err := m.FindActive(ctx, owners, store.NotificationWaiting, typ, targetID)
	if err != nil {
		m.log.Warn("failed to find open request notifications",
			"type", typ, "target_id", targetID, "error", err)
		return 0
	}

	closed := 0
	for _, n := range matched {
		n.Status = store.NotificationResponded
		n.IsUnread = false
		if err := m.store.UpdateNotification(ctx, n); err != nil {
			m.log.Warn("failed to close request notification",
				"notification_id", n.ID, "type", typ, "error", err)
			continue
		}
		closed++
	}
	return closed
}
