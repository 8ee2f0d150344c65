// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fedpact/fedpact-go/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{
		dataDir: cfg.DataDir,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "fedpact.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Translate dialect errors so unique violations surface as
		// gorm.ErrDuplicatedKey instead of raw sqlite errors.
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.Organisation{},
		&store.Contract{},
		&store.Notification{},
		&store.AuditRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OrganisationStore implementation

func (d *Driver) CreateOrganisation(ctx context.Context, org *store.Organisation) error {
	result := d.db.WithContext(ctx).Create(org)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetOrganisation(ctx context.Context, cid string) (*store.Organisation, error) {
	var org store.Organisation
	result := d.db.WithContext(ctx).First(&org, "cid = ?", cid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &org, nil
}

func (d *Driver) UpdateOrganisation(ctx context.Context, org *store.Organisation) error {
	result := d.db.WithContext(ctx).Save(org)
	return result.Error
}

func (d *Driver) ListOrganisations(ctx context.Context) ([]*store.Organisation, error) {
	var orgs []*store.Organisation
	result := d.db.WithContext(ctx).Order("cid").Find(&orgs)
	if result.Error != nil {
		return nil, result.Error
	}
	return orgs, nil
}

// ContractStore implementation

func (d *Driver) CreateContract(ctx context.Context, c *store.Contract) error {
	result := d.db.WithContext(ctx).Create(c)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetContract(ctx context.Context, ctid string) (*store.Contract, error) {
	var c store.Contract
	result := d.db.WithContext(ctx).First(&c, "ctid = ?", ctid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &c, nil
}

func (d *Driver) UpdateContract(ctx context.Context, c *store.Contract) error {
	result := d.db.WithContext(ctx).Save(c)
	return result.Error
}

// ListContractsByOrganisation filters membership in Go: membership lists are
// JSON-serialized columns, so SQL cannot index into them portably.
func (d *Driver) ListContractsByOrganisation(ctx context.Context, cid string) ([]*store.Contract, error) {
	var all []*store.Contract
	result := d.db.WithContext(ctx).Where("status <> ?", store.ContractDeleted).Order("ctid").Find(&all)
	if result.Error != nil {
		return nil, result.Error
	}

	var out []*store.Contract
	for _, c := range all {
		if c.Member(cid) || c.PendingMember(cid) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *Driver) ListContracts(ctx context.Context) ([]*store.Contract, error) {
	var contracts []*store.Contract
	result := d.db.WithContext(ctx).Order("ctid").Find(&contracts)
	if result.Error != nil {
		return nil, result.Error
	}
	return contracts, nil
}

// NotificationStore implementation

func (d *Driver) CreateNotification(ctx context.Context, n *store.Notification) error {
	result := d.db.WithContext(ctx).Create(n)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetNotification(ctx context.Context, id string) (*store.Notification, error) {
	var n store.Notification
	result := d.db.WithContext(ctx).First(&n, "notification_id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &n, nil
}

func (d *Driver) UpdateNotification(ctx context.Context, n *store.Notification) error {
	result := d.db.WithContext(ctx).Save(n)
	return result.Error
}

func (d *Driver) ListNotificationsByOwners(ctx context.Context, owners []string) ([]*store.Notification, error) {
	if len(owners) == 0 {
		return nil, nil
	}
	var notifications []*store.Notification
	result := d.db.WithContext(ctx).
		Where("owner IN ?", owners).
		Order("created_at DESC").
		Find(&notifications)
	if result.Error != nil {
		return nil, result.Error
	}
	return notifications, nil
}

// AuditStore implementation

func (d *Driver) CreateAudit(ctx context.Context, rec *store.AuditRecord) error {
	result := d.db.WithContext(ctx).Create(rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) ListAudits(ctx context.Context, cid, targetID string, since time.Time) ([]*store.AuditRecord, error) {
	q := d.db.WithContext(ctx).
		Where("cid = ? AND created_at >= ?", cid, since)
	if targetID != "" {
		q = q.Where("target_id = ?", targetID)
	}

	var records []*store.AuditRecord
	result := q.Order("created_at DESC").Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}
