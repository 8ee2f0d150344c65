package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/fedpact/fedpact-go/internal/cache"
	"github.com/fedpact/fedpact-go/internal/registry"
	"github.com/fedpact/fedpact-go/internal/store"
)

// ResolvedItem is one item a gateway may expose under a contract.
type ResolvedItem struct {
	OID string `json:"oid"`
	RW  bool   `json:"rw"`
}

// CommonStatus classifies the contract relationship of an ordered pair.
type CommonStatus struct {
	// Contracted: a private contract exists with both as confirmed members.
	Contracted bool `json:"contracted"`

	// ContractRequested: a private contract includes both, at least one of
	// them still pending.
	ContractRequested bool `json:"contract_requested"`
}

func resolvePrefix(ctid string) string {
	return "resolve:" + ctid + ":"
}

func resolveKey(ctid, agid string) string {
	return resolvePrefix(ctid) + agid
}

// ResolveItemsForGateway returns the enabled grants of the contract whose
// items resolve to agid, sorted by oid. Disabled grants are never returned.
// Items the registry no longer knows are skipped. Results are indexed per
// (ctid, agid) in the cache and invalidated on every contract mutation.
func (s *Service) ResolveItemsForGateway(ctx context.Context, ctid, agid string) ([]ResolvedItem, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, resolveKey(ctid, agid)); err == nil {
			var cached []ResolvedItem
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			// A corrupt entry is dropped and recomputed.
			s.cache.Delete(ctx, resolveKey(ctid, agid))
		}
	}

	c, err := s.store.GetContract(ctx, ctid)
	if err != nil {
		return nil, err
	}

	items := []ResolvedItem{}
	for _, grant := range c.Items {
		if !grant.Enabled {
			continue
		}
		owner, err := s.registry.ResolveOwningGateway(ctx, grant.OID)
		if err != nil {
			if errors.Is(err, registry.ErrItemUnknown) {
				s.log.Warn("skipping grant for unregistered item", "ctid", ctid, "oid", grant.OID)
				continue
			}
			return nil, fmt.Errorf("failed to resolve gateway for oid %s: %w", grant.OID, err)
		}
		if owner != agid {
			continue
		}
		items = append(items, ResolvedItem{OID: grant.OID, RW: grant.RW})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].OID < items[j].OID })

	if s.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, resolveKey(ctid, agid), data, cache.TTLResolution); err != nil {
				s.log.Warn("failed to index resolution result", "ctid", ctid, "agid", agid, "error", err)
			}
		}
	}

	return items, nil
}

// CommonContractStatus reports whether a private contract binds the ordered
// pair (a, b): contracted when one has both confirmed, requested when one
// includes both with at least one still pending. Empty for a == b.
func (s *Service) CommonContractStatus(ctx context.Context, a, b string) (CommonStatus, error) {
	var status CommonStatus
	if a == b {
		return status, nil
	}

	contracts, err := s.store.ListContractsByOrganisation(ctx, a)
	if err != nil {
		return status, err
	}

	for _, c := range contracts {
		if c.Type != store.ContractTypePrivate {
			continue
		}
		aConfirmed, bConfirmed := c.Member(a), c.Member(b)
		aPending, bPending := c.PendingMember(a), c.PendingMember(b)

		if aConfirmed && bConfirmed {
			status.Contracted = true
		} else if (aConfirmed || aPending) && (bConfirmed || bPending) {
			status.ContractRequested = true
		}
	}
	return status, nil
}
