package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/store"
)

// memAuditStore is a minimal in-memory AuditStore for tests.
type memAuditStore struct {
	records []*store.AuditRecord
	fail    error
}

func (m *memAuditStore) CreateAudit(ctx context.Context, rec *store.AuditRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memAuditStore) ListAudits(ctx context.Context, cid, targetID string, since time.Time) ([]*store.AuditRecord, error) {
	var out []*store.AuditRecord
	for _, rec := range m.records {
		if rec.CID != cid {
			continue
		}
		if targetID != "" && rec.Target.ID != targetID {
			continue
		}
		if rec.CreatedAt.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestMessageForIsPure(t *testing.T) {
	a := messageFor(events.PartnershipAccepted, "Acme", "Globex", "")
	b := messageFor(events.PartnershipAccepted, "Acme", "Globex", "")
	if a != b {
		t.Errorf("identical inputs must produce identical text: %q vs %q", a, b)
	}
	if !strings.Contains(a, "Acme") || !strings.Contains(a, "Globex") {
		t.Errorf("expected both names in message, got %q", a)
	}
}

func TestMessageForCoversAllKnownTypes(t *testing.T) {
	types := []events.Type{
		events.PartnershipRequestSent,
		events.PartnershipRequest, events.PartnershipAccepted, events.PartnershipRejected,
		events.PartnershipCancelled, events.PartnershipRemoved,
		events.ContractRequest, events.ContractAccepted, events.ContractRejected,
		events.ContractUpdated, events.ContractDeleted, events.ContractOrgInvited,
		events.ContractOrgJoined, events.ContractOrgLeft, events.ContractOrgRemoved,
		events.ItemShared, events.ItemUnshared, events.ItemEnabled, events.ItemDisabled, events.ItemUpdated,
		events.CompanyCreated, events.CompanyUpdated, events.CompanyDeleted,
		events.NodeRegistered, events.NodeRemoved, events.NodePartnersChanged,
		events.UserInvited, events.UserJoined, events.UserRemoved, events.UserRoleChanged,
	}

	fallback := messageFor(events.Type("bogusType"), "a", "b", "c")
	for _, typ := range types {
		msg := messageFor(typ, "a", "b", "c")
		if msg == "" {
			t.Errorf("empty message for %s", typ)
		}
		if msg == fallback {
			t.Errorf("%s should have a dedicated template, got the fallback", typ)
		}
	}
}

func TestMessageForUnknownTypeFallsBack(t *testing.T) {
	msg := messageFor(events.Type("somethingNew"), "Acme", "Globex", "")
	if !strings.Contains(msg, "somethingNew") {
		t.Errorf("fallback should mention the type, got %q", msg)
	}
}

func TestRecordAssignsIDAndMessage(t *testing.T) {
	st := &memAuditStore{}
	svc := New(st, nil)

	rec, err := svc.Record(context.Background(), Entry{
		CID:    "org-a",
		Actor:  store.Entity{ID: "org-a", Name: "Acme"},
		Target: store.Entity{ID: "org-b", Name: "Globex"},
		Type:   events.PartnershipAccepted,
		Labels: store.AuditLabels{Status: "ok", Source: "api", Origin: "coordinator"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.ID == "" {
		t.Error("expected assigned audit id")
	}
	if rec.Message == "" {
		t.Error("expected derived message")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected timestamp")
	}
	if len(st.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(st.records))
	}
}

func TestListTruncatesDayBoundaryToMidnight(t *testing.T) {
	st := &memAuditStore{}
	svc := New(st, nil)

	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// 07:00 two days ago: inside a 2-day window measured from midnight,
	// outside one measured from now-48h.
	st.records = append(st.records, &store.AuditRecord{
		ID: "a-1", CID: "org-a", Target: store.Entity{ID: "org-b"},
		CreatedAt: time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC),
	})

	list, err := svc.List(context.Background(), "org-a", "org-b", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the 07:00 record inside the midnight-truncated window, got %d records", len(list))
	}
}
