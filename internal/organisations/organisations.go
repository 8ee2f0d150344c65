// Package organisations manages organisation records and the partnership
// edge set between them.
//
// Relationship lists are stored denormalized on both organisation documents
// with no referential integrity in the store. Every edge mutation therefore
// goes through one of the symmetric helpers below, which update both halves
// through a single call path. The two writes are still independent document
// writes: a failure between them leaves the first applied, which is why each
// half is mutated idempotently.
package organisations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/store"
)

// ErrSelfRelation is returned when an edge operation names the same
// organisation on both ends.
var ErrSelfRelation = errors.New("organisation cannot relate to itself")

// RelationState describes the partnership state of the ordered pair (A, B)
// from A's perspective.
type RelationState string

const (
	RelationNone     RelationState = "none"
	RelationOutgoing RelationState = "outgoing" // A requested B
	RelationIncoming RelationState = "incoming" // B requested A
	RelationFriends  RelationState = "friends"
)

// Service manages organisation records and partnership edges.
type Service struct {
	store store.OrganisationStore
	log   *slog.Logger
	now   func() time.Time
}

// New creates an organisation service.
func New(st store.OrganisationStore, log *slog.Logger) *Service {
	return &Service{
		store: st,
		log:   logutil.NoopIfNil(log),
		now:   time.Now,
	}
}

// Create registers a new organisation.
func (s *Service) Create(ctx context.Context, cid, name string, nodes []string) (*store.Organisation, error) {
	org := &store.Organisation{
		CID:              cid,
		Name:             name,
		OutgoingRequests: []string{},
		IncomingRequests: []string{},
		Friends:          []string{},
		Nodes:            nodes,
		CreatedAt:        s.now(),
		UpdatedAt:        s.now(),
	}
	if org.Nodes == nil {
		org.Nodes = []string{}
	}
	if err := s.store.CreateOrganisation(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Get returns the organisation record for cid.
func (s *Service) Get(ctx context.Context, cid string) (*store.Organisation, error) {
	return s.store.GetOrganisation(ctx, cid)
}

// List returns all organisations.
func (s *Service) List(ctx context.Context) ([]*store.Organisation, error) {
	return s.store.ListOrganisations(ctx)
}

// Relation classifies the pair (a, b) from a's perspective.
func (s *Service) Relation(ctx context.Context, a, b string) (RelationState, error) {
	if a == b {
		return RelationNone, ErrSelfRelation
	}
	org, err := s.store.GetOrganisation(ctx, a)
	if err != nil {
		return RelationNone, err
	}
	switch {
	case store.Contains(org.Friends, b):
		return RelationFriends, nil
	case store.Contains(org.OutgoingRequests, b):
		return RelationOutgoing, nil
	case store.Contains(org.IncomingRequests, b):
		return RelationIncoming, nil
	}
	return RelationNone, nil
}

// pair loads both ends of an edge.
func (s *Service) pair(ctx context.Context, a, b string) (*store.Organisation, *store.Organisation, error) {
	if a == b {
		return nil, nil, ErrSelfRelation
	}
	orgA, err := s.store.GetOrganisation(ctx, a)
	if err != nil {
		return nil, nil, fmt.Errorf("organisation %s: %w", a, err)
	}
	orgB, err := s.store.GetOrganisation(ctx, b)
	if err != nil {
		return nil, nil, fmt.Errorf("organisation %s: %w", b, err)
	}
	return orgA, orgB, nil
}

// save writes an organisation if its edge sets changed.
func (s *Service) save(ctx context.Context, org *store.Organisation, changed bool) error {
	if !changed {
		return nil
	}
	org.UpdatedAt = s.now()
	if err := s.store.UpdateOrganisation(ctx, org); err != nil {
		return fmt.Errorf("organisation %s: %w", org.CID, err)
	}
	return nil
}

// AddRequestEdge records a pending partnership request from->to on both
// documents. Re-adding an existing edge is a no-op per side.
func (s *Service) AddRequestEdge(ctx context.Context, from, to string) error {
	orgFrom, orgTo, err := s.pair(ctx, from, to)
	if err != nil {
		return err
	}

	var changedFrom, changedTo bool
	orgFrom.OutgoingRequests, changedFrom = store.AddToSet(orgFrom.OutgoingRequests, to)
	orgTo.IncomingRequests, changedTo = store.AddToSet(orgTo.IncomingRequests, from)

	if err := s.save(ctx, orgFrom, changedFrom); err != nil {
		return err
	}
	return s.save(ctx, orgTo, changedTo)
}

// RemoveRequestEdge clears a pending request from->to from both documents,
// whichever halves of it still exist.
func (s *Service) RemoveRequestEdge(ctx context.Context, from, to string) error {
	orgFrom, orgTo, err := s.pair(ctx, from, to)
	if err != nil {
		return err
	}

	var changedFrom, changedTo bool
	orgFrom.OutgoingRequests, changedFrom = store.RemoveFromSet(orgFrom.OutgoingRequests, to)
	orgTo.IncomingRequests, changedTo = store.RemoveFromSet(orgTo.IncomingRequests, from)

	if err := s.save(ctx, orgFrom, changedFrom); err != nil {
		return err
	}
	return s.save(ctx, orgTo, changedTo)
}

// AddFriendEdge establishes the symmetric friendship a<->b and clears any
// pending request entries between the pair, in both directions.
func (s *Service) AddFriendEdge(ctx context.Context, a, b string) error {
	orgA, orgB, err := s.pair(ctx, a, b)
	if err != nil {
		return err
	}

	changedA := clearPending(orgA, b)
	changedB := clearPending(orgB, a)

	var added bool
	orgA.Friends, added = store.AddToSet(orgA.Friends, b)
	changedA = changedA || added
	orgB.Friends, added = store.AddToSet(orgB.Friends, a)
	changedB = changedB || added

	if err := s.save(ctx, orgA, changedA); err != nil {
		return err
	}
	return s.save(ctx, orgB, changedB)
}

// RemoveFriendEdge removes the symmetric friendship a<->b. Removing an edge
// that does not exist is a no-op.
func (s *Service) RemoveFriendEdge(ctx context.Context, a, b string) error {
	orgA, orgB, err := s.pair(ctx, a, b)
	if err != nil {
		return err
	}

	var changedA, changedB bool
	orgA.Friends, changedA = store.RemoveFromSet(orgA.Friends, b)
	orgB.Friends, changedB = store.RemoveFromSet(orgB.Friends, a)

	if err := s.save(ctx, orgA, changedA); err != nil {
		return err
	}
	return s.save(ctx, orgB, changedB)
}

// clearPending removes every pending-request trace of other from org.
func clearPending(org *store.Organisation, other string) bool {
	var c1, c2 bool
	org.OutgoingRequests, c1 = store.RemoveFromSet(org.OutgoingRequests, other)
	org.IncomingRequests, c2 = store.RemoveFromSet(org.IncomingRequests, other)
	return c1 || c2
}

// Nodes returns the union of gateway ids across the given organisations.
// Unknown cids are skipped: node fan-out is best-effort.
func (s *Service) Nodes(ctx context.Context, cids ...string) ([]string, error) {
	var out []string
	for _, cid := range cids {
		org, err := s.store.GetOrganisation(ctx, cid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.log.Warn("skipping nodes of unknown organisation", "cid", cid)
				continue
			}
			return nil, err
		}
		for _, agid := range org.Nodes {
			out, _ = store.AddToSet(out, agid)
		}
	}
	return out, nil
}

// AddNode registers a gateway id for the organisation.
func (s *Service) AddNode(ctx context.Context, cid, agid string) error {
	org, err := s.store.GetOrganisation(ctx, cid)
	if err != nil {
		return err
	}
	var changed bool
	org.Nodes, changed = store.AddToSet(org.Nodes, agid)
	return s.save(ctx, org, changed)
}

// RemoveNode removes a gateway id from the organisation.
func (s *Service) RemoveNode(ctx context.Context, cid, agid string) error {
	org, err := s.store.GetOrganisation(ctx, cid)
	if err != nil {
		return err
	}
	var changed bool
	org.Nodes, changed = store.RemoveFromSet(org.Nodes, agid)
	return s.save(ctx, org, changed)
}
