package database

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/labcraft/internal/kvstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationDropMalformedRecords = "2026-10-01_drop_malformed_records"
	migrationConvertLegacyKeys    = "2026-10-02_convert_legacy_keys"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationDropMalformedRecords, apply: dropMalformedRecords},
		{name: migrationConvertLegacyKeys, apply: convertLegacyRecords},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// dropMalformedRecords removes rows that can never be decoded; readers treat
// them as empty anyway.
func dropMalformedRecords(db *gorm.DB) error {
	var records []kvstore.Record
	if err := db.Find(&records).Error; err != nil {
		return err
	}
	for _, record := range records {
		if json.Valid([]byte(record.Value)) {
			continue
		}
		if err := db.Where("namespace = ?", record.Namespace).Delete(&kvstore.Record{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// convertLegacyRecords moves rows stored under legacy key names into their
// current namespace, rewriting each value into the current record shape. A
// row already present under the current name wins. Legacy rows that do not
// decode are dropped.
func convertLegacyRecords(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, conversion := range legacyConversions {
			var legacy kvstore.Record
			err := tx.Where("namespace = ?", conversion.key).Take(&legacy).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.Where("namespace = ?", conversion.key).Delete(&kvstore.Record{}).Error; err != nil {
				return err
			}

			var existing int64
			if err := tx.Model(&kvstore.Record{}).Where("namespace = ?", conversion.current.String()).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}

			value, err := conversion.convert(legacy.Value)
			if err != nil {
				continue
			}
			converted := kvstore.Record{
				Namespace:        conversion.current.String(),
				Value:            value,
				UpdatedAtSeconds: legacy.UpdatedAtSeconds,
			}
			if err := tx.Create(&converted).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
