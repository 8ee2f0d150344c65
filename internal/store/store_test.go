package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/store"
	_ "github.com/fedpact/fedpact-go/internal/store/json"
	_ "github.com/fedpact/fedpact-go/internal/store/sqlite"
)

func testOrganisation(cid string) *store.Organisation {
	return &store.Organisation{
		CID:       cid,
		Name:      "Org " + cid,
		Friends:   []string{},
		Nodes:     []string{"agid-" + cid},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func testContract(ctid string) *store.Contract {
	return &store.Contract{
		CTID:                 ctid,
		Type:                 store.ContractTypePrivate,
		Status:               store.ContractPending,
		Organisations:        []string{"org-a"},
		PendingOrganisations: []string{"org-b"},
		Items:                testItemGrants(),
		Description:          "test contract",
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
}

func testItemGrants() []store.ItemGrant {
	return []store.ItemGrant{
		{OID: "oid-1", CID: "org-a", UID: "u1", UserMail: "u1@a.example", Type: "dataset", RW: false, Enabled: true},
	}
}

// runDriverTests runs the standard test suite against a driver.
func runDriverTests(t *testing.T, driverName string, cfg *store.DriverConfig) {
	ctx := context.Background()

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatalf("failed to create %s driver: %v", driverName, err)
	}
	defer driver.Close()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("failed to init %s driver: %v", driverName, err)
	}

	if driver.Name() != driverName {
		t.Errorf("expected driver name %q, got %q", driverName, driver.Name())
	}

	t.Run("organisations", func(t *testing.T) {
		org := testOrganisation("org-a")
		if err := driver.CreateOrganisation(ctx, org); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := driver.CreateOrganisation(ctx, testOrganisation("org-a")); !errors.Is(err, store.ErrAlreadyExists) {
			t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
		}

		got, err := driver.GetOrganisation(ctx, "org-a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != "Org org-a" {
			t.Errorf("unexpected name %q", got.Name)
		}

		got.Friends, _ = store.AddToSet(got.Friends, "org-b")
		if err := driver.UpdateOrganisation(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ = driver.GetOrganisation(ctx, "org-a")
		if !store.Contains(got.Friends, "org-b") {
			t.Error("friends update not persisted")
		}

		if _, err := driver.GetOrganisation(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("contracts", func(t *testing.T) {
		c := testContract("ct-1")
		if err := driver.CreateContract(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := driver.GetContract(ctx, "ct-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.Items) != 1 || got.Items[0].OID != "oid-1" {
			t.Errorf("items not persisted: %+v", got.Items)
		}

		byOrg, err := driver.ListContractsByOrganisation(ctx, "org-b")
		if err != nil {
			t.Fatalf("list by org: %v", err)
		}
		if len(byOrg) != 1 {
			t.Errorf("expected 1 contract for pending member, got %d", len(byOrg))
		}

		got.Status = store.ContractDeleted
		got.Organisations = nil
		got.PendingOrganisations = nil
		got.Items = nil
		if err := driver.UpdateContract(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}
		byOrg, _ = driver.ListContractsByOrganisation(ctx, "org-b")
		if len(byOrg) != 0 {
			t.Errorf("deleted contract should be excluded, got %d", len(byOrg))
		}
	})

	t.Run("notifications", func(t *testing.T) {
		base := time.Now()
		for i, owner := range []string{"org-a", "org-a", "org-b"} {
			n := &store.Notification{
				ID:        fmt.Sprintf("n-%d", i),
				Owner:     owner,
				Actor:     store.Entity{ID: "org-b", Name: "Org B"},
				Target:    store.Entity{ID: "org-a", Name: "Org A"},
				Type:      events.PartnershipRequest,
				Status:    store.NotificationWaiting,
				IsUnread:  true,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := driver.CreateNotification(ctx, n); err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
		}

		list, err := driver.ListNotificationsByOwners(ctx, []string{"org-a"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 for org-a, got %d", len(list))
		}
		if list[0].CreatedAt.Before(list[1].CreatedAt) {
			t.Error("expected newest first ordering")
		}

		list[0].Status = store.NotificationResponded
		list[0].IsUnread = false
		if err := driver.UpdateNotification(ctx, list[0]); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ := driver.GetNotification(ctx, list[0].ID)
		if got.Status != store.NotificationResponded {
			t.Errorf("status update not persisted: %s", got.Status)
		}
	})

	t.Run("audits", func(t *testing.T) {
		now := time.Now()
		recs := []*store.AuditRecord{
			{ID: "a-1", CID: "org-a", Target: store.Entity{ID: "org-b"}, Type: events.PartnershipAccepted, Message: "m1", CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "a-2", CID: "org-a", Target: store.Entity{ID: "org-b"}, Type: events.PartnershipRemoved, Message: "m2", CreatedAt: now},
			{ID: "a-3", CID: "org-b", Target: store.Entity{ID: "org-a"}, Type: events.PartnershipAccepted, Message: "m3", CreatedAt: now},
		}
		for _, rec := range recs {
			if err := driver.CreateAudit(ctx, rec); err != nil {
				t.Fatalf("create %s: %v", rec.ID, err)
			}
		}

		list, err := driver.ListAudits(ctx, "org-a", "org-b", now.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].ID != "a-2" {
			t.Errorf("expected only a-2 inside window, got %+v", list)
		}

		list, _ = driver.ListAudits(ctx, "org-a", "org-b", now.Add(-72*time.Hour))
		if len(list) != 2 {
			t.Fatalf("expected 2 in wide window, got %d", len(list))
		}
		if list[0].ID != "a-2" {
			t.Error("expected newest first ordering")
		}
	})
}

func TestJSONDriver(t *testing.T) {
	runDriverTests(t, "json", &store.DriverConfig{Driver: "json", DataDir: t.TempDir()})
}

func TestJSONDriverDoesNotAliasCallerRecords(t *testing.T) {
	ctx := context.Background()

	driver, err := store.New(&store.DriverConfig{Driver: "json", DataDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver.Close()

	org := testOrganisation("org-a")
	if err := driver.CreateOrganisation(ctx, org); err != nil {
		t.Fatal(err)
	}
	org.Name = "mutated after create"
	org.Friends, _ = store.AddToSet(org.Friends, "org-z")

	got, err := driver.GetOrganisation(ctx, "org-a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Org org-a" {
		t.Errorf("stored organisation aliased the caller's record: name %q", got.Name)
	}
	if store.Contains(got.Friends, "org-z") {
		t.Error("stored organisation shares slice backing with the caller's record")
	}

	c := testContract("ct-1")
	if err := driver.CreateContract(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Items[0].Enabled = false

	gotC, err := driver.GetContract(ctx, "ct-1")
	if err != nil {
		t.Fatal(err)
	}
	if !gotC.Items[0].Enabled {
		t.Error("stored contract shares grant backing with the caller's record")
	}
}

func TestSQLiteDriver(t *testing.T) {
	runDriverTests(t, "sqlite", &store.DriverConfig{Driver: "sqlite", DataDir: t.TempDir()})
}

func TestJSONDriverPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	d1, err := store.New(&store.DriverConfig{Driver: "json", DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := d1.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := d1.CreateOrganisation(ctx, testOrganisation("org-x")); err != nil {
		t.Fatal(err)
	}
	d1.Close()

	d2, err := store.New(&store.DriverConfig{Driver: "json", DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := d2.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer d2.Close()

	got, err := d2.GetOrganisation(ctx, "org-x")
	if err != nil {
		t.Fatalf("expected org-x after reopen: %v", err)
	}
	if got.Name != "Org org-x" {
		t.Errorf("unexpected name %q", got.Name)
	}
}

func TestUnknownDriver(t *testing.T) {
	if _, err := store.New(&store.DriverConfig{Driver: "bogus"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
