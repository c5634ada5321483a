package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internetarchive/olclient/internal/logger"
	"github.com/internetarchive/olclient/pkg/models"
)

// ErrNotCached is returned when a record is not in the cache or its
// entry is older than the caller's freshness bound.
var ErrNotCached = errors.New("record not cached")

// Repository provides read/write access to cached catalog records
type Repository struct {
	db     *Database
	logger *logger.Logger
}

// NewRepository creates a new repository instance
func NewRepository(db *Database, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// Put stores (or refreshes) a record's JSON document
func (r *Repository) Put(olid string, data []byte) error {
	kind, err := models.KindOf(olid)
	if err != nil {
		return err
	}

	record := CachedRecord{
		OLID:      olid,
		Kind:      string(kind),
		Data:      data,
		FetchedAt: time.Now(),
	}
	err = r.db.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "olid"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "data", "fetched_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to cache record %s: %w", olid, err)
	}
	return nil
}

// Get returns a record's cached JSON document. A zero maxAge accepts
// any cached entry; otherwise entries fetched longer ago return
// ErrNotCached.
func (r *Repository) Get(olid string, maxAge time.Duration) ([]byte, error) {
	var record CachedRecord
	err := r.db.GetDB().First(&record, "olid = ?", olid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached record %s: %w", olid, err)
	}
	if maxAge > 0 && time.Since(record.FetchedAt) > maxAge {
		return nil, ErrNotCached
	}
	return record.Data, nil
}

// Delete removes a record from the cache. Deleting a record that is
// not cached is not an error.
func (r *Repository) Delete(olid string) error {
	if err := r.db.GetDB().Delete(&CachedRecord{}, "olid = ?", olid).Error; err != nil {
		return fmt.Errorf("failed to delete cached record %s: %w", olid, err)
	}
	return nil
}

// Purge drops all entries fetched before the cutoff and returns how
// many were removed.
func (r *Repository) Purge(olderThan time.Time) (int64, error) {
	result := r.db.GetDB().Delete(&CachedRecord{}, "fetched_at < ?", olderThan)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", result.Error)
	}
	if r.logger != nil && result.RowsAffected > 0 {
		r.logger.Info("Purged stale cache entries", map[string]interface{}{
			"removed": result.RowsAffected,
		})
	}
	return result.RowsAffected, nil
}

// Count returns the number of cached records, optionally restricted
// to one kind.
func (r *Repository) Count(kind models.Kind) (int64, error) {
	query := r.db.GetDB().Model(&CachedRecord{})
	if kind != "" {
		query = query.Where("kind = ?", string(kind))
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count cached records: %w", err)
	}
	return n, nil
}
