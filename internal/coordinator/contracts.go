package coordinator

import (
	"context"
	"fmt"

	"github.com/fedpact/fedpact-go/internal/audit"
	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/store"
)

// ProposeParams are the validated inputs for a new contract proposal.
type ProposeParams struct {
	Proposer    string
	Type        store.ContractType
	Invitees    []string
	Description string
	Items       []store.ItemGrant
}

func contractEntity(c *store.Contract) store.Entity {
	name := c.Description
	if name == "" {
		name = c.CTID
	}
	return store.Entity{ID: c.CTID, Name: name}
}

// contractAudit appends one record in the acting organisation's trail.
func (c *Coordinator) contractAudit(g *taskGroup, typ events.Type, actorOrg *store.Organisation, target store.Entity, contract *store.Contract) {
	c.recordAudit(g, audit.Entry{
		CID:    actorOrg.CID,
		Actor:  entityOf(actorOrg),
		Target: target,
		Object: contractEntity(contract),
		Type:   typ,
		Labels: store.AuditLabels{Status: "success", Source: "contract"},
	})
}

// notifyMembers fans one informational notification out to every confirmed
// member except the actor.
func (c *Coordinator) notifyMembers(g *taskGroup, contract *store.Contract, members []string, actorOrg *store.Organisation, typ events.Type, status store.NotificationStatus) {
	for _, member := range members {
		if member == actorOrg.CID {
			continue
		}
		c.notify(g, notifications.NewNotification{
			Owner:  member,
			Actor:  entityOf(actorOrg),
			Target: contractEntity(contract),
			Type:   typ,
			Status: status,
		})
	}
}

// ProposeContract creates a contract and invites the named organisations.
// Every referenced organisation must exist.
func (c *Coordinator) ProposeContract(ctx context.Context, p ProposeParams) (*store.Contract, error) {
	proposer, err := c.orgs.Get(ctx, p.Proposer)
	if err != nil {
		return nil, fmt.Errorf("proposer %s: %w", p.Proposer, err)
	}
	for _, cid := range p.Invitees {
		if _, err := c.orgs.Get(ctx, cid); err != nil {
			return nil, fmt.Errorf("invitee %s: %w", cid, err)
		}
	}

	contract, err := c.contracts.Create(ctx, contracts.CreateParams{
		Type:        p.Type,
		Proposer:    p.Proposer,
		Invitees:    p.Invitees,
		Description: p.Description,
		Items:       p.Items,
	})
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract propose", c.log)
	for _, invitee := range contract.PendingOrganisations {
		c.notify(g, notifications.NewNotification{
			Owner:  invitee,
			Actor:  entityOf(proposer),
			Target: contractEntity(contract),
			Type:   events.ContractOrgInvited,
		})
	}
	c.contractAudit(g, events.ContractRequest, proposer, store.Entity{}, contract)
	g.Go("mirror contract", func(ctx context.Context) error {
		c.ledger.ContractCreated(ctx, contract)
		return nil
	})
	c.count(g, "contract_propose")
	g.Wait()
	return contract, nil
}

// JoinContract confirms a pending invitation.
func (c *Coordinator) JoinContract(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	org, err := c.orgs.Get(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", cid, err)
	}

	contract, err := c.contracts.Join(ctx, ctid, cid)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract join", c.log)
	g.Go("close invitation notifications", func(ctx context.Context) error {
		c.mailbox.CloseRequests(ctx, []string{cid}, events.ContractOrgInvited, ctid)
		return nil
	})
	c.notifyMembers(g, contract, contract.Organisations, org, events.ContractOrgJoined, store.NotificationAccepted)
	c.contractAudit(g, events.ContractOrgJoined, org, store.Entity{}, contract)
	g.Go("mirror acceptance", func(ctx context.Context) error {
		c.ledger.ContractAccepted(ctx, ctid, cid)
		return nil
	})
	c.count(g, "contract_join")
	g.Wait()
	return contract, nil
}

// DeclineContract refuses a pending invitation.
func (c *Coordinator) DeclineContract(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	org, err := c.orgs.Get(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", cid, err)
	}

	contract, err := c.contracts.Decline(ctx, ctid, cid)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract decline", c.log)
	g.Go("close invitation notifications", func(ctx context.Context) error {
		c.mailbox.CloseRequests(ctx, []string{cid}, events.ContractOrgInvited, ctid)
		return nil
	})
	c.notifyMembers(g, contract, contract.Organisations, org, events.ContractRejected, store.NotificationRejected)
	c.contractAudit(g, events.ContractRejected, org, store.Entity{}, contract)
	g.Go("mirror rejection", func(ctx context.Context) error {
		c.ledger.ContractRejected(ctx, ctid, cid)
		return nil
	})
	c.count(g, "contract_decline")
	g.Wait()
	return contract, nil
}

// InviteToContract invites another organisation into an existing contract.
// The inviter must be a confirmed member.
func (c *Coordinator) InviteToContract(ctx context.Context, ctid, inviter, invitee string) (*store.Contract, error) {
	inviterOrg, inviteeOrg, err := c.loadPair(ctx, inviter, invitee)
	if err != nil {
		return nil, err
	}

	contract, err := c.contracts.Invite(ctx, ctid, inviter, invitee)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract invite", c.log)
	c.notify(g, notifications.NewNotification{
		Owner:  invitee,
		Actor:  entityOf(inviterOrg),
		Target: contractEntity(contract),
		Type:   events.ContractOrgInvited,
	})
	c.contractAudit(g, events.ContractOrgInvited, inviterOrg, entityOf(inviteeOrg), contract)
	c.count(g, "contract_invite")
	g.Wait()
	return contract, nil
}

// LeaveContract withdraws an organisation from a contract. The contract is
// deleted when the last confirmed member leaves.
func (c *Coordinator) LeaveContract(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	org, err := c.orgs.Get(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", cid, err)
	}

	contract, err := c.contracts.RemoveOrganisation(ctx, ctid, cid)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract leave", c.log)
	c.notifyMembers(g, contract, contract.Organisations, org, events.ContractOrgLeft, store.NotificationInfo)
	c.contractAudit(g, events.ContractOrgLeft, org, store.Entity{}, contract)
	if contract.Status == store.ContractDeleted {
		g.Go("mirror removal", func(ctx context.Context) error {
			c.ledger.ContractRemoved(ctx, ctid)
			return nil
		})
	}
	c.count(g, "contract_leave")
	g.Wait()
	return contract, nil
}

// DeleteContract marks the contract deleted and informs all members it had.
func (c *Coordinator) DeleteContract(ctx context.Context, ctid, actor string) (*store.Contract, error) {
	actorOrg, err := c.orgs.Get(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", actor, err)
	}

	before, err := c.contracts.Get(ctx, ctid)
	if err != nil {
		return nil, err
	}
	members := append([]string(nil), before.Organisations...)

	contract, err := c.contracts.Delete(ctx, ctid)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract delete", c.log)
	c.notifyMembers(g, contract, members, actorOrg, events.ContractDeleted, store.NotificationInfo)
	c.contractAudit(g, events.ContractDeleted, actorOrg, store.Entity{}, contract)
	g.Go("mirror removal", func(ctx context.Context) error {
		c.ledger.ContractRemoved(ctx, ctid)
		return nil
	})
	c.count(g, "contract_delete")
	g.Wait()
	return contract, nil
}

// ShareItem adds or updates an item grant on the contract.
func (c *Coordinator) ShareItem(ctx context.Context, ctid string, grant store.ItemGrant) (*store.Contract, error) {
	org, err := c.orgs.Get(ctx, grant.CID)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", grant.CID, err)
	}

	contract, err := c.contracts.Get(ctx, ctid)
	if err != nil {
		return nil, err
	}
	typ := events.ItemShared
	if contract.Grant(grant.OID) != nil {
		typ = events.ItemUpdated
	}

	contract, err = c.contracts.UpsertItem(ctx, ctid, grant)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract share item", c.log)
	c.notifyMembers(g, contract, contract.Organisations, org, typ, store.NotificationInfo)
	c.contractAudit(g, typ, org, store.Entity{ID: grant.OID, Name: grant.OID}, contract)
	g.Go("mirror item", func(ctx context.Context) error {
		c.ledger.ItemAdded(ctx, ctid, grant)
		return nil
	})
	c.count(g, "contract_share_item")
	g.Wait()
	return contract, nil
}

// SetItemEnabled toggles a grant without removing it.
func (c *Coordinator) SetItemEnabled(ctx context.Context, ctid, actor, oid string, enabled bool) (*store.Contract, error) {
	actorOrg, err := c.orgs.Get(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", actor, err)
	}

	contract, err := c.contracts.SetItemEnabled(ctx, ctid, oid, enabled)
	if err != nil {
		return nil, err
	}

	typ := events.ItemEnabled
	if !enabled {
		typ = events.ItemDisabled
	}
	g := newTaskGroup("contract toggle item", c.log)
	c.notifyMembers(g, contract, contract.Organisations, actorOrg, typ, store.NotificationInfo)
	c.contractAudit(g, typ, actorOrg, store.Entity{ID: oid, Name: oid}, contract)
	c.count(g, "contract_toggle_item")
	g.Wait()
	return contract, nil
}

// UnshareItem removes an item grant from the contract.
func (c *Coordinator) UnshareItem(ctx context.Context, ctid, actor, oid string) (*store.Contract, error) {
	actorOrg, err := c.orgs.Get(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("organisation %s: %w", actor, err)
	}

	contract, err := c.contracts.RemoveItem(ctx, ctid, oid)
	if err != nil {
		return nil, err
	}

	g := newTaskGroup("contract unshare item", c.log)
	c.notifyMembers(g, contract, contract.Organisations, actorOrg, events.ItemUnshared, store.NotificationInfo)
	c.contractAudit(g, events.ItemUnshared, actorOrg, store.Entity{ID: oid, Name: oid}, contract)
	g.Go("mirror item removal", func(ctx context.Context) error {
		c.ledger.ItemRemoved(ctx, ctid, oid)
		return nil
	})
	c.count(g, "contract_unshare_item")
	g.Wait()
	return contract, nil
}
