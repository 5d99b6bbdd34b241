package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Sumatoshi-tech/loctrack/pkg/history"
)

const (
	maxRetries    = 3
	retryBackoff  = 50 * time.Millisecond
	busyTimeoutMS = 5000
)

// recordModel is the GORM model for history_records. Position preserves
// storage order within a key.
type recordModel struct {
	RepoKey  string `gorm:"primaryKey"`
	Position int    `gorm:"primaryKey"`
	Date     string `gorm:"not null"`
	Lines    int    `gorm:"not null;check:lines >= 0"`
}

// TableName specifies the table name for GORM.
func (recordModel) TableName() string { return "history_records" }

// SQLiteStore keeps all histories in one SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens or creates the database at path and migrates its schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)).Error
	if err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	err = db.AutoMigrate(&recordModel{})
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (history.History, error) {
	err := checkKey(key)
	if err != nil {
		return history.History{}, err
	}

	var rows []recordModel

	err = withRetry(func() error {
		return s.db.WithContext(ctx).Where("repo_key = ?", key).Order("position").Find(&rows).Error
	})
	if err != nil {
		return history.History{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	h := make(history.History, 0, len(rows))

	for _, row := range rows {
		date, err := history.ParseDate(row.Date)
		if err != nil {
			return history.History{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		h = append(h, history.Record{Date: date, Lines: row.Lines})
	}

	return validated(h)
}

// Save implements Store. All rows of key are replaced in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, key string, h history.History) error {
	err := checkKey(key)
	if err != nil {
		return err
	}

	rows := make([]recordModel, 0, len(h))
	for i, rec := range h {
		rows = append(rows, recordModel{RepoKey: key, Position: i, Date: rec.Date.String(), Lines: rec.Lines})
	}

	err = withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.Where("repo_key = ?", key).Delete(&recordModel{}).Error
			if err != nil {
				return err
			}

			if len(rows) == 0 {
				return nil
			}

			return tx.Create(&rows).Error
		})
	})
	if err != nil {
		return fmt.Errorf("save history %s: %w", key, err)
	}

	return nil
}

// Keys lists the stored keys in lexical order.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string

	err := s.db.WithContext(ctx).Model(&recordModel{}).Distinct("repo_key").Order("repo_key").Pluck("repo_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	return keys, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}

	return sqlDB.Close()
}

// withRetry retries operations on SQLITE_BUSY with linear backoff.
func withRetry(fn func() error) error {
	var err error

	for i := range maxRetries {
		err = fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(retryBackoff * time.Duration(i+1))

			continue
		}

		return err
	}

	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}
