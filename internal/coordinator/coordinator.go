// Package coordinator drives the cross-organisation protocol: partnership
// lifecycle, contract lifecycle and their side effects. Primary mutations
// run as sagas over the edge-set and contract services; notifications,
// audit records and sink calls run afterwards in a joined task group and
// never fail the operation.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fedpact/fedpact-go/internal/audit"
	"github.com/fedpact/fedpact-go/internal/contracts"
	"github.com/fedpact/fedpact-go/internal/events"
	"github.com/fedpact/fedpact-go/internal/logutil"
	"github.com/fedpact/fedpact-go/internal/notifications"
	"github.com/fedpact/fedpact-go/internal/organisations"
	"github.com/fedpact/fedpact-go/internal/sinks"
	"github.com/fedpact/fedpact-go/internal/store"
)

// ErrConflict is returned when an operation's precondition does not hold
// and the current state does not already reflect the intended outcome.
var ErrConflict = errors.New("operation conflicts with current state")

// Coordinator orchestrates partnership and contract operations.
type Coordinator struct {
	orgs      *organisations.Service
	contracts *contracts.Service
	mailbox   *notifications.Mailbox
	audit     *audit.Service
	gateway   sinks.GatewaySink
	ledger    sinks.LedgerSink
	metrics   sinks.MetricsSink
	log       *slog.Logger
}

// New wires a coordinator. gateway, ledger and metrics may be nil-free
// no-op implementations; the coordinator calls them unconditionally.
func New(
	orgs *organisations.Service,
	cts *contracts.Service,
	mailbox *notifications.Mailbox,
	aud *audit.Service,
	gateway sinks.GatewaySink,
	ledger sinks.LedgerSink,
	metrics sinks.MetricsSink,
	log *slog.Logger,
) *Coordinator {
	return &Coordinator{
		orgs:      orgs,
		contracts: cts,
		mailbox:   mailbox,
		audit:     aud,
		gateway:   gateway,
		ledger:    ledger,
		metrics:   metrics,
		log:       logutil.NoopIfNil(log),
	}
}

func entityOf(org *store.Organisation) store.Entity {
	return store.Entity{ID: org.CID, Name: org.Name}
}

// loadPair resolves both organisation records. Unknown cids surface as
// store.ErrNotFound, the primary-tier error for missing references.
func (c *Coordinator) loadPair(ctx context.Context, a, b string) (*store.Organisation, *store.Organisation, error) {
	orgA, err := c.orgs.Get(ctx, a)
	if err != nil {
		return nil, nil, fmt.Errorf("organisation %s: %w", a, err)
	}
	orgB, err := c.orgs.Get(ctx, b)
	if err != nil {
		return nil, nil, fmt.Errorf("organisation %s: %w", b, err)
	}
	return orgA, orgB, nil
}

// notifyGateways fans "partners changed" out to every gateway node of the
// given organisations, one task per gateway id.
func (c *Coordinator) notifyGateways(ctx context.Context, g *taskGroup, cids ...string) {
	agids, err := c.orgs.Nodes(ctx, cids...)
	if err != nil {
		c.log.Warn("failed to resolve gateway nodes for fan-out", "cids", cids, "error", err)
		return
	}
	for _, agid := range agids {
		agid := agid
		g.Go("notify gateway "+agid, func(ctx context.Context) error {
			return c.gateway.NotifyPartnersChanged(ctx, agid)
		})
	}
}

// count pushes an operation counter as a task.
func (c *Coordinator) count(g *taskGroup, name string) {
	g.Go("count "+name, func(ctx context.Context) error {
		c.metrics.Count(ctx, name)
		return nil
	})
}

// notify writes one mailbox entry as a task. The target entity is the
// counterpart organisation from the owner's point of view, which lets
// later operations close the open request by (owner, type, target).
func (c *Coordinator) notify(g *taskGroup, n notifications.NewNotification) {
	g.Go(fmt.Sprintf("notify %s of %s", n.Owner, n.Type), func(ctx context.Context) error {
		_, err := c.mailbox.Create(ctx, n)
		return err
	})
}

// recordAudit appends one audit record as a task.
func (c *Coordinator) recordAudit(g *taskGroup, e audit.Entry) {
	g.Go(fmt.Sprintf("audit %s for %s", e.Type, e.CID), func(ctx context.Context) error {
		_, err := c.audit.Record(ctx, e)
		return err
	})
}

// partnershipAudits emits one record per organisation of the pair, each
// scoped to that organisation's trail and targeting its counterpart.
func (c *Coordinator) partnershipAudits(g *taskGroup, typ events.Type, actor, orgA, orgB *store.Organisation) {
	for _, pair := range [][2]*store.Organisation{{orgA, orgB}, {orgB, orgA}} {
		c.recordAudit(g, audit.Entry{
			CID:    pair[0].CID,
			Actor:  entityOf(actor),
			Target: entityOf(pair[1]),
			Type:   typ,
			Labels: store.AuditLabels{Status: "success", Source: "partnership"},
		})
	}
}

// SendRequest opens a partnership request from one organisation to
// another. An existing request or friendship in either direction is a
// conflict.
func (c *Coordinator) SendRequest(ctx context.Context, from, to string) error {
	sender, receiver, err := c.loadPair(ctx, from, to)
	if err != nil {
		return err
	}

	state, err := c.orgs.Relation(ctx, from, to)
	if err != nil {
		return err
	}
	if state != organisations.RelationNone {
		return fmt.Errorf("partnership %s with %s already %s: %w", from, to, state, ErrConflict)
	}

	s := &saga{name: "partnership send request", log: c.log}
	s.then("add request edge",
		func(ctx context.Context) error { return c.orgs.AddRequestEdge(ctx, from, to) },
		func(ctx context.Context) error { return c.orgs.RemoveRequestEdge(ctx, from, to) },
	)
	if err := s.execute(ctx); err != nil {
		return err
	}

	g := newTaskGroup("partnership send request", c.log)
	c.notify(g, notifications.NewNotification{
		Owner:  to,
		Actor:  entityOf(sender),
		Target: entityOf(sender),
		Type:   events.PartnershipRequest,
	})
	c.notify(g, notifications.NewNotification{
		Owner:  from,
		Actor:  entityOf(sender),
		Target: entityOf(receiver),
		Type:   events.PartnershipRequestSent,
		Status: store.NotificationInfo,
	})
	c.count(g, "partnership_request")
	g.Wait()
	return nil
}

// Accept confirms a pending request sent by requester to responder. When
// the pair is already friends the call is a silent no-op.
func (c *Coordinator) Accept(ctx context.Context, responder, requester string) error {
	respOrg, reqOrg, err := c.loadPair(ctx, responder, requester)
	if err != nil {
		return err
	}

	state, err := c.orgs.Relation(ctx, responder, requester)
	if err != nil {
		return err
	}
	switch state {
	case organisations.RelationFriends:
		return nil
	case organisations.RelationIncoming:
	default:
		return fmt.Errorf("no pending request from %s to %s: %w", requester, responder, ErrConflict)
	}

	s := &saga{name: "partnership accept", log: c.log}
	s.then("remove request edge",
		func(ctx context.Context) error { return c.orgs.RemoveRequestEdge(ctx, requester, responder) },
		func(ctx context.Context) error { return c.orgs.AddRequestEdge(ctx, requester, responder) },
	)
	s.then("add friend edge",
		func(ctx context.Context) error { return c.orgs.AddFriendEdge(ctx, responder, requester) },
		func(ctx context.Context) error { return c.orgs.RemoveFriendEdge(ctx, responder, requester) },
	)
	if err := s.execute(ctx); err != nil {
		return err
	}

	g := newTaskGroup("partnership accept", c.log)
	g.Go("close request notifications", func(ctx context.Context) error {
		c.mailbox.CloseRequests(ctx, []string{responder}, events.PartnershipRequest, requester)
		return nil
	})
	c.notify(g, notifications.NewNotification{
		Owner:  requester,
		Actor:  entityOf(respOrg),
		Target: entityOf(respOrg),
		Type:   events.PartnershipAccepted,
		Status: store.NotificationAccepted,
	})
	c.partnershipAudits(g, events.PartnershipAccepted, respOrg, respOrg, reqOrg)
	c.notifyGateways(ctx, g, responder, requester)
	c.count(g, "partnership_accept")
	g.Wait()
	return nil
}

// Reject refuses a pending request sent by requester to responder. When
// no request exists and the pair is not friends the call is a silent
// no-op.
func (c *Coordinator) Reject(ctx context.Context, responder, requester string) error {
	respOrg, _, err := c.loadPair(ctx, responder, requester)
	if err != nil {
		return err
	}

	state, err := c.orgs.Relation(ctx, responder, requester)
	if err != nil {
		return err
	}
	switch state {
	case organisations.RelationNone:
		return nil
	case organisations.RelationIncoming:
	default:
		return fmt.Errorf("partnership %s with %s is %s, not a pending request: %w", responder, requester, state, ErrConflict)
	}

	s := &saga{name: "partnership reject", log: c.log}
	s.then("remove request edge",
		func(ctx context.Context) error { return c.orgs.RemoveRequestEdge(ctx, requester, responder) },
		func(ctx context.Context) error { return c.orgs.AddRequestEdge(ctx, requester, responder) },
	)
	if err := s.execute(ctx); err != nil {
		return err
	}

	g := newTaskGroup("partnership reject", c.log)
	g.Go("close request notifications", func(ctx context.Context) error {
		c.mailbox.CloseRequests(ctx, []string{responder}, events.PartnershipRequest, requester)
		return nil
	})
	c.notify(g, notifications.NewNotification{
		Owner:  requester,
		Actor:  entityOf(respOrg),
		Target: entityOf(respOrg),
		Type:   events.PartnershipRejected,
		Status: store.NotificationRejected,
	})
	c.count(g, "partnership_reject")
	g.Wait()
	return nil
}

// Cancel withdraws a pending request the requester sent earlier. When no
// request exists and the pair is not friends the call is a silent no-op.
func (c *Coordinator) Cancel(ctx context.Context, requester, responder string) error {
	reqOrg, _, err := c.loadPair(ctx, requester, responder)
	if err != nil {
		return err
	}

	state, err := c.orgs.Relation(ctx, requester, responder)
	if err != nil {
		return err
	}
	switch state {
	case organisations.RelationNone:
		return nil
	case organisations.RelationOutgoing:
	default:
		return fmt.Errorf("partnership %s with %s is %s, not an outgoing request: %w", requester, responder, state, ErrConflict)
	}

	s := &saga{name: "partnership cancel", log: c.log}
	s.then("remove request edge",
		func(ctx context.Context) error { return c.orgs.RemoveRequestEdge(ctx, requester, responder) },
		func(ctx context.Context) error { return c.orgs.AddRequestEdge(ctx, requester, responder) },
	)
	if err := s.execute(ctx); err != nil {
		return err
	}

	g := newTaskGroup("partnership cancel", c.log)
	g.Go("close request notifications", func(ctx context.Context) error {
		c.mailbox.CloseRequests(ctx, []string{responder}, events.PartnershipRequest, requester)
		return nil
	})
	c.notify(g, notifications.NewNotification{
		Owner:  responder,
		Actor:  entityOf(reqOrg),
		Target: entityOf(reqOrg),
		Type:   events.PartnershipCancelled,
		Status: store.NotificationInfo,
	})
	c.count(g, "partnership_cancel")
	g.Wait()
	return nil
}

// CancelFriendship removes an established friendship. Called on a pair
// that is not friends it is a silent no-op.
func (c *Coordinator) CancelFriendship(ctx context.Context, a, b string) error {
	orgA, orgB, err := c.loadPair(ctx, a, b)
	if err != nil {
		return err
	}

	state, err := c.orgs.Relation(ctx, a, b)
	if err != nil {
		return err
	}
	if state != organisations.RelationFriends {
		return nil
	}

	s := &saga{name: "partnership cancel friendship", log: c.log}
	s.then("remove friend edge",
		func(ctx context.Context) error { return c.orgs.RemoveFriendEdge(ctx, a, b) },
		func(ctx context.Context) error { return c.orgs.AddFriendEdge(ctx, a, b) },
	)
	if err := s.execute(ctx); err != nil {
		return err
	}

	g := newTaskGroup("partnership cancel friendship", c.log)
	c.partnershipAudits(g, events.PartnershipRemoved, orgA, orgA, orgB)
	c.notifyGateways(ctx, g, a, b)
	c.count(g, "partnership_remove")
	g.Wait()
	return nil
}
