package store

import "testing"

func TestSetHelpers(t *testing.T) {
	set := []string{}

	set, changed := AddToSet(set, "a")
	if !changed || len(set) != 1 {
		t.Fatalf("expected add, got changed=%v set=%v", changed, set)
	}

	set, changed = AddToSet(set, "a")
	if changed {
		t.Error("adding an existing member should not change the set")
	}

	set, _ = AddToSet(set, "b")
	set, _ = AddToSet(set, "c")

	set, changed = RemoveFromSet(set, "b")
	if !changed {
		t.Error("expected removal of b")
	}
	if Contains(set, "b") {
		t.Error("b should be gone")
	}
	if set[0] != "a" || set[1] != "c" {
		t.Errorf("order not preserved: %v", set)
	}

	set, changed = RemoveFromSet(set, "missing")
	if changed {
		t.Error("removing a missing member should not change the set")
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		orgs    []string
		pending []string
		status  ContractStatus
		want    ContractStatus
	}{
		{"members only", []string{"a", "b"}, nil, ContractPending, ContractApproved},
		{"pending remains", []string{"a"}, []string{"b"}, ContractApproved, ContractPending},
		{"empty", nil, nil, ContractApproved, ContractPending},
		{"deleted is terminal", []string{"a"}, nil, ContractDeleted, ContractDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Contract{
				Organisations:        tt.orgs,
				PendingOrganisations: tt.pending,
				Status:               tt.status,
			}
			c.DeriveStatus()
			if c.Status != tt.want {
				t.Errorf("got %s, want %s", c.Status, tt.want)
			}
		})
	}
}

func TestContractGrant(t *testing.T) {
	c := &Contract{Items: []ItemGrant{
		{OID: "o1", CID: "a", Enabled: true},
		{OID: "o2", CID: "b"},
	}}

	if g := c.Grant("o2"); g == nil || g.CID != "b" {
		t.Errorf("expected grant o2 owned by b, got %+v", g)
	}
	if g := c.Grant("o3"); g != nil {
		t.Errorf("expected nil for unknown oid, got %+v", g)
	}

	// Grant returns a pointer into Items so toggles stick.
	c.Grant("o2").Enabled = true
	if !c.Items[1].Enabled {
		t.Error("toggle through Grant should mutate the contract")
	}
}

func TestNotificationStatusTerminal(t *testing.T) {
	if NotificationWaiting.Terminal() {
		t.Error("WAITING must not be terminal")
	}
	for _, s := range []NotificationStatus{NotificationInfo, NotificationAccepted, NotificationRejected, NotificationResponded} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
