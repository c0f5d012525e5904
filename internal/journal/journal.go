// Package journal persists the order audit trail: one row per sizing
// outcome, published or dropped.
package journal

import (
	"fmt"

	"astock-signal-trader-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Journal is the append-only order audit store.
type Journal struct {
	db *gorm.DB
}

// Open connects to the journal database and migrates the schema.
func Open(dsn string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}

	if err := db.AutoMigrate(&models.OrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends one sizing outcome.
func (j *Journal) Record(rec *models.OrderRecord) error {
	return j.db.Create(rec).Error
}

// Recent returns the latest records, newest first.
func (j *Journal) Recent(limit int) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := j.db.Order("id desc").Limit(limit).Find(&records).Error
	return records, err
}
