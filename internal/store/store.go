package store

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DataStore wraps the database connection and the site identity cache.
type DataStore struct {
	db *gorm.DB

	mu    sync.Mutex
	sites map[string]uint // identity key -> site id, monotonic
}

// Open opens (or creates) the SQLite database at path and migrates the
// schema. Use "file::memory:?cache=shared" for an in-memory store.
func Open(path string) (*DataStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&Site{}, &Violation{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &DataStore{db: db, sites: make(map[string]uint)}, nil
}

// Close releases the underlying connection pool.
func (ds *DataStore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ResolveSite maps an identity key to a stable site id, inserting a new
// Site row on first sight. Matching is exact-string only: keys that
// differ in case or spacing are distinct sites. The mapping is
// monotonic; entries are never removed or merged. The insert is
// insert-if-absent under the unique index on identity_key, so two
// concurrent writers resolving the same new key converge on one row.
func (ds *DataStore) ResolveSite(key string, site Site) (uint, error) {
	ds.mu.Lock()
	if id, ok := ds.sites[key]; ok {
		ds.mu.Unlock()
		return id, nil
	}
	ds.mu.Unlock()

	var existing Site
	err := ds.db.Where("identity_key = ?", key).First(&existing).Error
	switch {
	case err == nil:
		ds.cacheSite(key, existing.SiteID)
		return existing.SiteID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to insert
	default:
		return 0, fmt.Errorf("site lookup: %w", err)
	}

	site.IdentityKey = key
	if err := ds.db.Create(&site).Error; err != nil {
		// Lost a race with another writer: the unique index rejected the
		// duplicate, so the row exists now.
		var raced Site
		if lookupErr := ds.db.Where("identity_key = ?", key).First(&raced).Error; lookupErr == nil {
			ds.cacheSite(key, raced.SiteID)
			return raced.SiteID, nil
		}
		return 0, fmt.Errorf("site insert: %w", err)
	}

	ds.cacheSite(key, site.SiteID)
	return site.SiteID, nil
}

func (ds *DataStore) cacheSite(key string, id uint) {
	ds.mu.Lock()
	ds.sites[key] = id
	ds.mu.Unlock()
}

// SaveViolation appends one violation row.
func (ds *DataStore) SaveViolation(v *Violation) error {
	if err := ds.db.Create(v).Error; err != nil {
		return fmt.Errorf("violation insert: %w", err)
	}
	return nil
}

// AllSites returns every site ordered by id (insertion order).
func (ds *DataStore) AllSites() ([]Site, error) {
	var sites []Site
	if err := ds.db.Order("site_id").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("site query: %w", err)
	}
	return sites, nil
}

// AllViolations returns every violation row ordered by id.
func (ds *DataStore) AllViolations() ([]Violation, error) {
	var violations []Violation
	if err := ds.db.Order("id").Find(&violations).Error; err != nil {
		return nil, fmt.Errorf("violation query: %w", err)
	}
	return violations, nil
}

// ViolationsByTimestampDesc returns every violation ordered newest
// first, for the violations listing endpoint.
func (ds *DataStore) ViolationsByTimestampDesc() ([]Violation, error) {
	var violations []Violation
	if err := ds.db.Order("timestamp DESC").Find(&violations).Error; err != nil {
		return nil, fmt.Errorf("violation query: %w", err)
	}
	return violations, nil
}
