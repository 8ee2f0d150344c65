// Package json implements a JSON file-based persistence driver.
// It uses atomic writes (temp file + fsync + rename) and in-process locking.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fedpact/fedpact-go/internal/store"
)

func init() {
	store.Register("json", NewDriver)
}

// Driver implements the store.Driver interface using JSON files.
type Driver struct {
	dataDir string
	mu      sync.RWMutex
	closed  bool

	// In-memory state loaded from JSON
	organisations map[string]*store.Organisation // keyed by cid
	contracts     map[string]*store.Contract     // keyed by ctid
	notifications map[string]*store.Notification // keyed by notificationId
	audits        map[string]*store.AuditRecord  // keyed by auditId

	// Secondary indexes
	ownerIndex map[string][]string // owner cid -> notification ids
}

// NewDriver creates a new JSON driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for json driver")
	}

	return &Driver{
		dataDir:       cfg.DataDir,
		organisations: make(map[string]*store.Organisation),
		contracts:     make(map[string]*store.Contract),
		notifications: make(map[string]*store.Notification),
		audits:        make(map[string]*store.AuditRecord),
		ownerIndex:    make(map[string][]string),
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "json"
}

// Init loads data from JSON files.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	if err := d.loadFile("organisations.json", &d.organisations); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load organisations: %w", err)
	}
	if err := d.loadFile("contracts.json", &d.contracts); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load contracts: %w", err)
	}
	if err := d.loadFile("notifications.json", &d.notifications); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	if err := d.loadFile("audits.json", &d.audits); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load audits: %w", err)
	}

	d.rebuildIndexes()

	return nil
}

// Close releases resources.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// loadFile loads a JSON file into the target map.
func (d *Driver) loadFile(filename string, target interface{}) error {
	path := filepath.Join(d.dataDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// saveFile atomically writes data to a JSON file.
// Pattern: write to temp file, fsync, rename.
func (d *Driver) saveFile(filename string, data interface{}) error {
	path := filepath.Join(d.dataDir, filename)
	tempPath := path + ".tmp"

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(jsonData); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rebuildIndexes rebuilds secondary indexes from primary data.
func (d *Driver) rebuildIndexes() {
	d.ownerIndex = make(map[string][]string)
	for id, n := range d.notifications {
		d.ownerIndex[n.Owner] = append(d.ownerIndex[n.Owner], id)
	}
}

// cloneOrganisation returns a copy that shares no slice backing with the
// stored record, so callers can mutate freely before writing back.
func cloneOrganisation(org *store.Organisation) *store.Organisation {
	cp := *org
	cp.OutgoingRequests = append([]string(nil), org.OutgoingRequests...)
	cp.IncomingRequests = append([]string(nil), org.IncomingRequests...)
	cp.Friends = append([]string(nil), org.Friends...)
	cp.Nodes = append([]string(nil), org.Nodes...)
	return &cp
}

func cloneContract(c *store.Contract) *store.Contract {
	cp := *c
	cp.Organisations = append([]string(nil), c.Organisations...)
	cp.PendingOrganisations = append([]string(nil), c.PendingOrganisations...)
	cp.RemovedOrganisations = append([]string(nil), c.RemovedOrganisations...)
	cp.Items = append([]store.ItemGrant(nil), c.Items...)
	return &cp
}

// OrganisationStore implementation

func (d *Driver) CreateOrganisation(ctx context.Context, org *store.Organisation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if _, ok := d.organisations[org.CID]; ok {
		return store.ErrAlreadyExists
	}

	d.organisations[org.CID] = cloneOrganisation(org)
	return d.saveFile("organisations.json", d.organisations)
}

func (d *Driver) GetOrganisation(ctx context.Context, cid string) (*store.Organisation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	org, ok := d.organisations[cid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneOrganisation(org), nil
}

func (d *Driver) UpdateOrganisation(ctx context.Context, org *store.Organisation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.organisations[org.CID]; !ok {
		return store.ErrNotFound
	}
	d.organisations[org.CID] = cloneOrganisation(org)
	return d.saveFile("organisations.json", d.organisations)
}

func (d *Driver) ListOrganisations(ctx context.Context) ([]*store.Organisation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*store.Organisation, 0, len(d.organisations))
	for _, org := range d.organisations {
		result = append(result, cloneOrganisation(org))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CID < result[j].CID })
	return result, nil
}

// ContractStore implementation

func (d *Driver) CreateContract(ctx context.Context, c *store.Contract) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if _, ok := d.contracts[c.CTID]; ok {
		return store.ErrAlreadyExists
	}

	d.contracts[c.CTID] = cloneContract(c)
	return d.saveFile("contracts.json", d.contracts)
}

func (d *Driver) GetContract(ctx context.Context, ctid string) (*store.Contract, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.contracts[ctid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneContract(c), nil
}

func (d *Driver) UpdateContract(ctx context.Context, c *store.Contract) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contracts[c.CTID]; !ok {
		return store.ErrNotFound
	}
	d.contracts[c.CTID] = cloneContract(c)
	return d.saveFile("contracts.json", d.contracts)
}

func (d *Driver) ListContractsByOrganisation(ctx context.Context, cid string) ([]*store.Contract, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*store.Contract
	for _, c := range d.contracts {
		if c.Status == store.ContractDeleted {
			continue
		}
		if c.Member(cid) || c.PendingMember(cid) {
			result = append(result, cloneContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CTID < result[j].CTID })
	return result, nil
}

func (d *Driver) ListContracts(ctx context.Context) ([]*store.Contract, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*store.Contract, 0, len(d.contracts))
	for _, c := range d.contracts {
		result = append(result, cloneContract(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CTID < result[j].CTID })
	return result, nil
}

// NotificationStore implementation

func (d *Driver) CreateNotification(ctx context.Context, n *store.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if _, ok := d.notifications[n.ID]; ok {
		return store.ErrAlreadyExists
	}

	cp := *n
	d.notifications[n.ID] = &cp
	d.ownerIndex[n.Owner] = append(d.ownerIndex[n.Owner], n.ID)
	return d.saveFile("notifications.json", d.notifications)
}

func (d *Driver) GetNotification(ctx context.Context, id string) (*store.Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (d *Driver) UpdateNotification(ctx context.Context, n *store.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.notifications[n.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *n
	d.notifications[n.ID] = &cp
	return d.saveFile("notifications.json", d.notifications)
}

func (d *Driver) ListNotificationsByOwners(ctx context.Context, owners []string) ([]*store.Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*store.Notification
	for _, owner := range owners {
		for _, id := range d.ownerIndex[owner] {
			if n, ok := d.notifications[id]; ok {
				cp := *n
				result = append(result, &cp)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// AuditStore implementation

func (d *Driver) CreateAudit(ctx context.Context, rec *store.AuditRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if _, ok := d.audits[rec.ID]; ok {
		return store.ErrAlreadyExists
	}

	cp := *rec
	d.audits[rec.ID] = &cp
	return d.saveFile("audits.json", d.audits)
}

func (d *Driver) ListAudits(ctx context.Context, cid, targetID string, since time.Time) ([]*store.AuditRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*store.AuditRecord
	for _, rec := range d.audits {
		if rec.CID != cid {
			continue
		}
		if targetID != "" && rec.Target.ID != targetID {
			continue
		}
		if rec.CreatedAt.Before(since) {
			continue
		}
		cp := *rec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}
