// Package gormstore persists the ledger snapshot in Postgres. Each user
// record is one row holding the serialized record, so the snapshot contract
// stays identical to the JSON file backend: Load returns everything, Save
// replaces everything.
package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type snapshotRecord struct {
	Username  string          `gorm:"primaryKey;size:64"`
	Record    json.RawMessage `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string { return "snapshot_records" }

// Open connects to Postgres with the pool settings used across the project.
func Open(databaseURL, appEnv string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is not set")
	}

	logMode := logger.Silent
	if appEnv == "development" {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	return db, nil
}

// Gateway implements repository.Gateway on top of a gorm connection.
type Gateway struct {
	db *gorm.DB
}

// New wraps an open connection. Call Migrate before first use on a fresh
// database.
func New(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// Migrate creates the snapshot table.
func (g *Gateway) Migrate() error {
	return g.db.AutoMigrate(&snapshotRecord{})
}

// Load reads every stored record. Undecodable rows fail the whole load with
// repository.ErrCorruptSnapshot so the caller can fall back to an empty
// ledger. Loaded records are normalized to the documented defaults.
func (g *Gateway) Load() (map[string]*ledger.UserRecord, error) {
	var rows []snapshotRecord
	if err := g.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}

	records := make(map[string]*ledger.UserRecord, len(rows))
	for _, row := range rows {
		var rec ledger.UserRecord
		if err := json.Unmarshal(row.Record, &rec); err != nil {
			return nil, fmt.Errorf("%w: row %q: %v", repository.ErrCorruptSnapshot, row.Username, err)
		}
		rec.Normalize(row.Username)
		records[row.Username] = &rec
	}
	return records, nil
}

// Save upserts every record and removes rows absent from the snapshot, all
// in one transaction. Failures map to repository.ErrSnapshotIO.
func (g *Gateway) Save(records map[string]*ledger.UserRecord) error {
	err := g.db.Transaction(func(tx *gorm.DB) error {
		usernames := make([]string, 0, len(records))
		for username, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			row := snapshotRecord{Username: username, Record: data}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "username"}},
				UpdateAll: true,
			}).Create(&row).Error; err != nil {
				return err
			}
			usernames = append(usernames, username)
		}

		del := tx.Model(&snapshotRecord{})
		if len(usernames) > 0 {
			del = del.Where("username NOT IN ?", usernames)
		} else {
			del = del.Where("1 = 1")
		}
		return del.Delete(&snapshotRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrSnapshotIO, err)
	}
	return nil
}
