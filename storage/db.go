package storage

import (
	"context"
	"fmt"

	"hdi-prep/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 500

// Store mirrors written rows into a relational database.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to a postgres or sqlite database.
func OpenStore(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return &Store{db: db}, nil
}

// Migrate creates or updates the mirror tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&models.EnzymeRelationship{}, &models.Fingerprint{})
}

// ResetRelationships deletes the relationship rows of one source so a rerun
// replaces rather than duplicates them.
func (s *Store) ResetRelationships(ctx context.Context, source string) error {
	return s.db.WithContext(ctx).Where("source = ?", source).Delete(&models.EnzymeRelationship{}).Error
}

// ResetFingerprints deletes the fingerprint rows of one source.
func (s *Store) ResetFingerprints(ctx context.Context, source string) error {
	return s.db.WithContext(ctx).Where("source = ?", source).Delete(&models.Fingerprint{}).Error
}

// SaveRelationships inserts relationship rows.
func (s *Store) SaveRelationships(ctx context.Context, rows []models.EnzymeRelationship) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

// SaveFingerprints inserts fingerprint records.
func (s *Store) SaveFingerprints(ctx context.Context, recs []*models.Fingerprint) error {
	if len(recs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(recs, insertBatchSize).Error
}

// UpdateInChIKeys sets the key of fingerprint rows by source and external id.
func (s *Store) UpdateInChIKeys(ctx context.Context, source string, keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, key := range keys {
			err := tx.Model(&models.Fingerprint{}).
				Where("source = ? AND external_id = ?", source, id).
				Update("inchi_key", key).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CountRelationships returns the number of relationship rows of a source.
func (s *Store) CountRelationships(ctx context.Context, source string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.EnzymeRelationship{}).Where("source = ?", source).Count(&n).Error
	return n, err
}

// CountFingerprints returns the number of fingerprint rows of a source.
func (s *Store) CountFingerprints(ctx context.Context, source string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Fingerprint{}).Where("source = ?", source).Count(&n).Error
	return n, err
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
