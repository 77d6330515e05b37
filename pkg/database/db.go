package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `gorm:"not null;default:''" json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:1000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	TotalSolves  int    `gorm:"default:0" json:"total_solves"`
	TotalStaff   int    `gorm:"default:0" json:"total_staff"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunRecord is one scheduling run, successful or not.
type RunRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Prefix     string    `gorm:"index;not null" json:"prefix"`
	Week       int       `gorm:"not null" json:"week"`
	Status     string    `gorm:"index;not null" json:"status"`
	DryRun     bool      `json:"dry_run"`
	StaffCount int       `json:"staff_count"`
	Objective  float64   `json:"objective"`
	Gap        float64   `json:"gap"`
	Passes     int       `json:"passes"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// StateBlob backs the database blob store.
type StateBlob struct {
	Key       string `gorm:"primaryKey;size:255"`
	Data      []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChainLease backs the database lease. One row per locked prefix.
type ChainLease struct {
	Name      string    `gorm:"primaryKey;size:255"`
	Token     string    `gorm:"size:36;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// Config selects the backend. A non-empty URL means postgres, otherwise
// a sqlite file at Path.
type Config struct {
	URL   string
	Path  string
	Debug bool
}

// Open connects to the database and migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	if cfg.URL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		})
		gormCfg.PrepareStmt = false
	} else {
		path := cfg.Path
		if path == "" {
			path = "ohsched.db"
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &RunRecord{}, &StateBlob{}, &ChainLease{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated in-memory sqlite database for tests and dry runs.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	// A pooled second connection would see a different empty database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
