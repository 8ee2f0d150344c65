// Package store provides persistence primitives and driver abstractions.
//
// The store is a key-indexed document repository: four independently keyed
// collections (organisations, contracts, notifications, audit records) with
// no transaction spanning more than one document. Cross-document consistency
// is the responsibility of the coordinator layer, not the store.
package store

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (json, sqlite).
	Name() string

	OrganisationStore
	ContractStore
	NotificationStore
	AuditStore
}

// OrganisationStore defines operations for organisation persistence.
type OrganisationStore interface {
	CreateOrganisation(ctx context.Context, org *Organisation) error
	GetOrganisation(ctx context.Context, cid string) (*Organisation, error)
	UpdateOrganisation(ctx context.Context, org *Organisation) error
	ListOrganisations(ctx context.Context) ([]*Organisation, error)
}

// ContractStore defines operations for contract persistence.
type ContractStore interface {
	CreateContract(ctx context.Context, c *Contract) error
	GetContract(ctx context.Context, ctid string) (*Contract, error)
	UpdateContract(ctx context.Context, c *Contract) error
	// ListContractsByOrganisation returns contracts where cid is a confirmed
	// or pending member. Deleted contracts are excluded.
	ListContractsByOrganisation(ctx context.Context, cid string) ([]*Contract, error)
	ListContracts(ctx context.Context) ([]*Contract, error)
}

// NotificationStore defines operations for notification persistence.
// Notifications carry a secondary index on owner.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	UpdateNotification(ctx context.Context, n *Notification) error
	// ListNotificationsByOwners returns notifications owned by any of the
	// given cids, newest first.
	ListNotificationsByOwners(ctx context.Context, owners []string) ([]*Notification, error)
}

// AuditStore defines operations for audit record persistence.
// Records are append-only: there is no update or delete.
type AuditStore interface {
	CreateAudit(ctx context.Context, rec *AuditRecord) error
	// ListAudits returns records for cid where target.id = targetID and
	// created >= since, newest first. Empty targetID matches any target.
	ListAudits(ctx context.Context, cid, targetID string, since time.Time) ([]*AuditRecord, error)
}
