package store

import (
	"time"

	"github.com/fedpact/fedpact-go/internal/events"
)

// ContractType distinguishes private (bilateral/invite-only) from community
// contracts.
type ContractType string

const (
	ContractTypePrivate   ContractType = "private"
	ContractTypeCommunity ContractType = "community"
)

// ContractStatus is the contract lifecycle status. It is derived from
// membership after every mutation: approved iff there is at least one
// confirmed organisation and no pending one. Deleted is terminal.
type ContractStatus string

const (
	ContractPending  ContractStatus = "pending"
	ContractApproved ContractStatus = "approved"
	ContractDeleted  ContractStatus = "deleted"
)

// NotificationStatus is the notification response-lifecycle status.
// WAITING is the only non-terminal status.
type NotificationStatus string

const (
	NotificationWaiting   NotificationStatus = "WAITING"
	NotificationInfo      NotificationStatus = "INFO"
	NotificationAccepted  NotificationStatus = "ACCEPTED"
	NotificationRejected  NotificationStatus = "REJECTED"
	NotificationResponded NotificationStatus = "RESPONDED"
)

// Terminal reports whether s is a terminal notification status.
func (s NotificationStatus) Terminal() bool {
	return s != NotificationWaiting && s != ""
}

// Entity is an id/name reference to an organisation, user, node, item or
// contract involved in an event.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Organisation is one member of the federation, identified by cid.
// Relationship lists hold cids; Nodes holds the gateway ids (agids) the
// organisation operates. Friendship symmetry is upheld by the protocol
// layer, each half is stored independently.
type Organisation struct {
	CID              string   `json:"cid" gorm:"primaryKey;column:cid"`
	Name             string   `json:"name"`
	OutgoingRequests []string `json:"outgoing_requests" gorm:"serializer:json"`
	IncomingRequests []string `json:"incoming_requests" gorm:"serializer:json"`
	Friends          []string `json:"friends" gorm:"serializer:json"`
	Nodes            []string `json:"nodes" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemGrant is one shared item inside a contract. At most one grant per oid
// exists within a contract; the grant can be toggled without being removed.
type ItemGrant struct {
	OID      string `json:"oid"`
	CID      string `json:"cid"` // owning organisation
	UID      string `json:"uid"`
	UserMail string `json:"user_mail"`
	Type     string `json:"type"`
	RW       bool   `json:"rw"`
	Enabled  bool   `json:"enabled"`
}

// Contract is a shared-access agreement between organisations, identified by
// ctid. Deletion is soft: membership, pending membership and items are
// cleared but the record persists for auditability.
type Contract struct {
	CTID                 string         `json:"ctid" gorm:"primaryKey;column:ctid"`
	Type                 ContractType   `json:"type"`
	Status               ContractStatus `json:"status" gorm:"index"`
	Organisations        []string       `json:"organisations" gorm:"serializer:json"`
	PendingOrganisations []string       `json:"pending_organisations" gorm:"serializer:json"`
	RemovedOrganisations []string       `json:"removed_organisations" gorm:"serializer:json"`
	Items                []ItemGrant    `json:"items" gorm:"serializer:json"`
	Description          string         `json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member reports whether cid is a confirmed member.
func (c *Contract) Member(cid string) bool { return Contains(c.Organisations, cid) }

// PendingMember reports whether cid is invited but unconfirmed.
func (c *Contract) PendingMember(cid string) bool { return Contains(c.PendingOrganisations, cid) }

// Grant returns the item grant for oid, or nil.
func (c *Contract) Grant(oid string) *ItemGrant {
	for i := range c.Items {
		if c.Items[i].OID == oid {
			return &c.Items[i]
		}
	}
	return nil
}

// DeriveStatus recomputes Status from membership. Deleted is terminal and
// never rederived.
func (c *Contract) DeriveStatus() {
	if c.Status == ContractDeleted {
		return
	}
	if len(c.Organisations) > 0 && len(c.PendingOrganisations) == 0 {
		c.Status = ContractApproved
	} else {
		c.Status = ContractPending
	}
}

// Notification is one entry in an organisation's mailbox, identified by
// notificationId and owned by the organisation whose mailbox holds it.
type Notification struct {
	ID       string             `json:"notification_id" gorm:"primaryKey;column:notification_id"`
	Owner    string             `json:"owner" gorm:"index"` // mailbox holder cid
	Actor    Entity             `json:"actor" gorm:"embedded;embeddedPrefix:actor_"`
	Target   Entity             `json:"target" gorm:"embedded;embeddedPrefix:target_"`
	Object   Entity             `json:"object" gorm:"embedded;embeddedPrefix:object_"`
	Type     events.Type        `json:"type"`
	Status   NotificationStatus `json:"status"`
	IsUnread bool               `json:"is_unread"`

	CreatedAt time.Time `json:"created_at"`
}

// AuditLabels classifies an audit record.
type AuditLabels struct {
	Status string `json:"status"`
	Source string `json:"source"`
	Origin string `json:"origin"`
	IP     string `json:"ip,omitempty"`
}

// AuditRecord is an immutable log entry of a state-changing action.
// Records are never updated or deleted, even when the entity they describe
// is later deleted.
type AuditRecord struct {
	ID      string      `json:"audit_id" gorm:"primaryKey;column:audit_id"`
	CID     string      `json:"cid" gorm:"column:cid;index:idx_audit_scope"`
	Actor   Entity      `json:"actor" gorm:"embedded;embeddedPrefix:actor_"`
	Target  Entity      `json:"target" gorm:"embedded;embeddedPrefix:target_"`
	Object  Entity      `json:"object" gorm:"embedded;embeddedPrefix:object_"`
	Type    events.Type `json:"type"`
	Message string      `json:"message"`
	Labels  AuditLabels `json:"labels" gorm:"embedded;embeddedPrefix:label_"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_audit_scope"`
}

// Contains reports whether set contains v.
func Contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// AddToSet appends v if absent, preserving order. The second return reports
// whether the set changed.
func AddToSet(set []string, v string) ([]string, bool) {
	if Contains(set, v) {
		return set, false
	}
	return append(set, v), true
}

// RemoveFromSet removes v if present, preserving order. The second return
// reports whether the set changed.
func RemoveFromSet(set []string, v string) ([]string, bool) {
	for i, s := range set {
		if s == v {
			return append(set[:i:i], set[i+1:]...), true
		}
	}
	return set, false
}
