package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"smart_basket/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ domain.ReceiptRepository = (*Storage)(nil)

// Storage is the SQLite receipt archive and local key-value settings store.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at dbPath.
// An empty dbPath resolves to the per-user default location.
func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = p
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.ReceiptRecord{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// DefaultDBPath resolves the database file path based on OS
func DefaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "SmartBasket", "data", "receipts.db"), nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Receipt Operations
// ======================================================================================

// SaveReceipt archives a completed receipt. Saving the same transaction twice overwrites it.
func (s *Storage) SaveReceipt(rec *domain.ReceiptRecord) error {
	if rec.TransactionID == "" {
		return &domain.ValidationError{Field: "transaction_id", Err: errors.New("required")}
	}
	return s.db.Save(rec).Error
}

// GetReceipt retrieves a receipt by transaction id
func (s *Storage) GetReceipt(transactionID string) (*domain.ReceiptRecord, error) {
	var rec domain.ReceiptRecord
	err := s.db.First(&rec, "transaction_id = ?", transactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListReceipts returns the receipts of one session, oldest first.
// An empty sessionID lists every receipt.
func (s *Storage) ListReceipts(sessionID string) ([]domain.ReceiptRecord, error) {
	var recs []domain.ReceiptRecord
	q := s.db.Order("issued_at ASC")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a terminal-local setting
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all terminal-local settings as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
