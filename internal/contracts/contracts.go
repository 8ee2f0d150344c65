// Package contracts implements shared-access agreements between
// organisations: membership lifecycle, per-item grants, and the
// authorization-resolution query consumed by gateways.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fedpact/fedpact-go/internal/cache"
	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/registry"
	"github.com/fedpact/fedpact-go/internal/store"
)

var (
	// ErrDeleted is returned when mutating a deleted contract.
	ErrDeleted = errors.New("contract is deleted")

	// ErrNotMember is returned when the acting organisation is not a
	// confirmed member of the contract.
	ErrNotMember = errors.New("organisation is not a contract member")

	// ErrNotInvited is returned when joining/declining without a pending
	// invitation.
	ErrNotInvited = errors.New("organisation is not invited to the contract")

	// ErrOwnershipMismatch is returned when a grant names an owning
	// organisation that does not match the item registry.
	ErrOwnershipMismatch = errors.New("grant owner does not match item registry")
)

// Service manages contract records.
type Service struct {
	store    store.ContractStore
	registry registry.ItemRegistry
	cache    cache.Cache
	log      *slog.Logger
	now      func() time.Time
}

// New creates a contract service. cache may be nil to disable the
// (ctid, agid) resolution index.
func New(st store.ContractStore, reg registry.ItemRegistry, c cache.Cache, log *slog.Logger) *Service {
	return &Service{
		store:    st,
		registry: reg,
		cache:    c,
		log:      logutil.NoopIfNil(log),
		now:      time.Now,
	}
}

// CreateParams are the validated inputs for a new contract.
type CreateParams struct {
	Type        store.ContractType
	Proposer    string
	Invitees    []string
	Description string
	Items       []store.ItemGrant
}

// Create stores a new contract. The proposer is a confirmed member from the
// start; invitees are pending until they join. Initial grants pass the same
// membership and registry ownership checks as UpsertItem.
func (s *Service) Create(ctx context.Context, p CreateParams) (*store.Contract, error) {
	if p.Proposer == "" {
		return nil, fmt.Errorf("proposer is required")
	}
	if p.Type == "" {
		p.Type = store.ContractTypePrivate
	}

	pending := []string{}
	for _, cid := range p.Invitees {
		if cid == p.Proposer {
			continue
		}
		pending, _ = store.AddToSet(pending, cid)
	}

	c := &store.Contract{
		CTID:                 uuid.New().String(),
		Type:                 p.Type,
		Organisations:        []string{p.Proposer},
		PendingOrganisations: pending,
		RemovedOrganisations: []string{},
		Items:                []store.ItemGrant{},
		Description:          p.Description,
		CreatedAt:            s.now(),
		UpdatedAt:            s.now(),
	}
	for _, grant := range p.Items {
		if c.Grant(grant.OID) != nil {
			return nil, fmt.Errorf("duplicate grant for oid %s", grant.OID)
		}
		if !c.Member(grant.CID) {
			return nil, fmt.Errorf("cid %s: %w", grant.CID, ErrNotMember)
		}
		if err := s.checkGrantOwner(ctx, grant); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, grant)
	}
	c.DeriveStatus()

	if err := s.store.CreateContract(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the contract for ctid.
func (s *Service) Get(ctx context.Context, ctid string) (*store.Contract, error) {
	return s.store.GetContract(ctx, ctid)
}

// ListByOrganisation returns non-deleted contracts where cid is a confirmed
// or pending member.
func (s *Service) ListByOrganisation(ctx context.Context, cid string) ([]*store.Contract, error) {
	return s.store.ListContractsByOrganisation(ctx, cid)
}

// mutate loads the contract, applies fn and saves it, invalidating the
// resolution index. fn returning false means nothing changed (no write).
func (s *Service) mutate(ctx context.Context, ctid string, fn func(c *store.Contract) (bool, error)) (*store.Contract, error) {
	c, err := s.store.GetContract(ctx, ctid)
	if err != nil {
		return nil, err
	}
	if c.Status == store.ContractDeleted {
		return nil, ErrDeleted
	}

	changed, err := fn(c)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	c.DeriveStatus()
	c.UpdatedAt = s.now()
	if err := s.store.UpdateContract(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ctid)
	return c, nil
}

// Join confirms a pending organisation. The last pending organisation to
// join moves the contract to approved. Joining an already confirmed
// membership is a no-op.
func (s *Service) Join(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		if c.Member(cid) {
			return false, nil
		}
		if !c.PendingMember(cid) {
			return false, fmt.Errorf("cid %s: %w", cid, ErrNotInvited)
		}
		c.PendingOrganisations, _ = store.RemoveFromSet(c.PendingOrganisations, cid)
		c.Organisations, _ = store.AddToSet(c.Organisations, cid)
		return true, nil
	})
}

// Decline refuses a pending invitation. Declining twice is a no-op.
func (s *Service) Decline(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		if c.Member(cid) {
			return false, fmt.Errorf("cid %s is already a member: %w", cid, ErrNotInvited)
		}
		var changed bool
		c.PendingOrganisations, changed = store.RemoveFromSet(c.PendingOrganisations, cid)
		return changed, nil
	})
}

// Invite adds an organisation to the pending set. Inviting moves an
// approved contract back to pending until the invitee responds.
func (s *Service) Invite(ctx context.Context, ctid, inviter, invitee string) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		if !c.Member(inviter) {
			return false, fmt.Errorf("cid %s: %w", inviter, ErrNotMember)
		}
		if c.Member(invitee) {
			return false, nil
		}
		var changed bool
		c.PendingOrganisations, changed = store.AddToSet(c.PendingOrganisations, invitee)
		if changed {
			// A re-invited organisation is no longer "removed".
			c.RemovedOrganisations, _ = store.RemoveFromSet(c.RemovedOrganisations, invitee)
		}
		return changed, nil
	})
}

// RemoveOrganisation withdraws an organisation from the contract within one
// document write: the org leaves the confirmed set, all its item grants are
// stripped, and it is appended to the removal history. The contract is
// soft-deleted when the last confirmed member leaves.
func (s *Service) RemoveOrganisation(ctx context.Context, ctid, cid string) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		var changed bool
		c.Organisations, changed = store.RemoveFromSet(c.Organisations, cid)
		if !changed {
			// Withdrawing a pending invitation counts too.
			c.PendingOrganisations, changed = store.RemoveFromSet(c.PendingOrganisations, cid)
			if !changed {
				return false, nil
			}
		}

		kept := make([]store.ItemGrant, 0, len(c.Items))
		for _, grant := range c.Items {
			if grant.CID != cid {
				kept = append(kept, grant)
			}
		}
		c.Items = kept
		c.RemovedOrganisations, _ = store.AddToSet(c.RemovedOrganisations, cid)

		if len(c.Organisations) == 0 {
			softDelete(c)
		}
		return true, nil
	})
}

// checkGrantOwner verifies the grant's cid against the item registry's
// owner record for the oid.
func (s *Service) checkGrantOwner(ctx context.Context, grant store.ItemGrant) error {
	owner, err := s.registry.ResolveOwningOrg(ctx, grant.OID)
	if err != nil {
		return fmt.Errorf("failed to resolve item owner: %w", err)
	}
	if owner != grant.CID {
		return fmt.Errorf("oid %s is owned by %s: %w", grant.OID, owner, ErrOwnershipMismatch)
	}
	return nil
}

// UpsertItem adds or replaces the grant for grant.OID. The owning
// organisation must be a confirmed member and must match the item registry's
// owner record for the oid.
func (s *Service) UpsertItem(ctx context.Context, ctid string, grant store.ItemGrant) (*store.Contract, error) {
	if err := s.checkGrantOwner(ctx, grant); err != nil {
		return nil, err
	}

	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		if !c.Member(grant.CID) {
			return false, fmt.Errorf("cid %s: %w", grant.CID, ErrNotMember)
		}
		if existing := c.Grant(grant.OID); existing != nil {
			*existing = grant
		} else {
			c.Items = append(c.Items, grant)
		}
		return true, nil
	})
}

// SetItemEnabled toggles a grant without removing it.
func (s *Service) SetItemEnabled(ctx context.Context, ctid, oid string, enabled bool) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		grant := c.Grant(oid)
		if grant == nil {
			return false, fmt.Errorf("grant for oid %s: %w", oid, store.ErrNotFound)
		}
		if grant.Enabled == enabled {
			return false, nil
		}
		grant.Enabled = enabled
		return true, nil
	})
}

// RemoveItem deletes the grant for oid. Removing a missing grant is a no-op.
func (s *Service) RemoveItem(ctx context.Context, ctid, oid string) (*store.Contract, error) {
	return s.mutate(ctx, ctid, func(c *store.Contract) (bool, error) {
		for i := range c.Items {
			if c.Items[i].OID == oid {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// Delete marks the contract deleted: membership, pending membership and
// items are cleared but the record persists, keeping the removal history
// for auditability. Deleting twice is a no-op.
func (s *Service) Delete(ctx context.Context, ctid string) (*store.Contract, error) {
	c, err := s.store.GetContract(ctx, ctid)
	if err != nil {
		return nil, err
	}
	if c.Status == store.ContractDeleted {
		return c, nil
	}

	for _, cid := range c.Organisations {
		c.RemovedOrganisations, _ = store.AddToSet(c.RemovedOrganisations, cid)
	}
	softDelete(c)
	c.UpdatedAt = s.now()

	if err := s.store.UpdateContract(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ctid)
	return c, nil
}

// softDelete clears live state, keeping history. Deleted is terminal:
// DeriveStatus never rederives it.
func softDelete(c *store.Contract) {
	c.Organisations = []string{}
	c.PendingOrganisations = []string{}
	c.Items = []store.ItemGrant{}
	c.Status = store.ContractDeleted
}

func (s *Service) invalidate(ctx context.Context, ctid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, resolvePrefix(ctid)); err != nil {
		s.log.Warn("failed to invalidate resolution index", "ctid", ctid, "error", err)
	}
}
