// Package audit implements the append-only trail of security and compliance
// relevant actions. Records are immutable: they are never updated or deleted,
// even when the entity they describe is later deleted.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/store"
)

// Entry is the caller-supplied part of an audit record. ID, message and
// timestamp are assigned by the service.
type Entry struct {
	CID    string
	Actor  store.Entity
	Target store.Entity
	Object store.Entity
	Type   events.Type
	Labels store.AuditLabels
}

// Service appends and queries audit records.
type Service struct {
	store store.AuditStore
	log   *slog.Logger
	now   func() time.Time
}

// New creates an audit service.
func New(st store.AuditStore, log *slog.Logger) *Service {
	return &Service{
		store: st,
		log:   logutil.NoopIfNil(log),
		now:   time.Now,
	}
}

// Record assigns a new audit id, derives the message from the event type and
// the involved names, and appends the record.
func (s *Service) Record(ctx context.Context, e Entry) (*store.AuditRecord, error) {
	rec := &store.AuditRecord{
		ID:        uuid.New().String(),
		CID:       e.CID,
		Actor:     e.Actor,
		Target:    e.Target,
		Object:    e.Object,
		Type:      e.Type,
		Message:   messageFor(e.Type, e.Actor.Name, e.Target.Name, e.Object.Name),
		Labels:    e.Labels,
		CreatedAt: s.now(),
	}

	if err := s.store.CreateAudit(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to append audit record: %w", err)
	}
	return rec, nil
}

// List returns records for cid targeting targetID created within the last
// `days` days, newest first. The day boundary is truncated to local midnight.
func (s *Service) List(ctx context.Context, cid, targetID string, days int) ([]*store.AuditRecord, error) {
	if days < 0 {
		days = 0
	}
	day := s.now().AddDate(0, 0, -days)
	since := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	return s.store.ListAudits(ctx, cid, targetID, since)
}
