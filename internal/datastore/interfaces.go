// interfaces.go: persistence for team settings and transactions
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/errors"
	"github.com/microtrax/microtrax/internal/logger"
)

// Interface abstracts the database backend.
type Interface interface {
	Open() error
	Close() error

	GetSettings(ctx context.Context, teamID string) (*SettingsRecord, error)
	SaveSettings(ctx context.Context, teamID, data string) (*SettingsRecord, error)

	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus, reason string) (*Transaction, error)
}

// DataStore implements Interface on a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New returns the store selected by database.type. Call Open before use.
func New(settings *conf.Settings) (Interface, error) {
	switch settings.Database.Type {
	case "sqlite", "":
		return &SQLiteStore{Settings: settings}, nil
	case "mysql":
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&SettingsRecord{}, &Transaction{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	getLogger().Debug("database migration completed",
		logger.String("db_type", dbType),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Close releases the connection pool.
func (ds *DataStore) Close() error {
	if err := ds.ready(); err != nil {
		return err
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

// GetSettings returns the settings record of teamID.
func (ds *DataStore) GetSettings(ctx context.Context, teamID string) (*SettingsRecord, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var rec SettingsRecord
	if err := ds.DB.WithContext(ctx).Where("team_id = ?", teamID).First(&rec).Error; err != nil {
		return nil, dbError(err, "get_settings", "settings")
	}
	return &rec, nil
}

// SaveSettings inserts or replaces the settings document of teamID in one
// statement.
func (ds *DataStore) SaveSettings(ctx context.Context, teamID, data string) (*SettingsRecord, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	rec := SettingsRecord{
		ID:     uuid.NewString(),
		TeamID: teamID,
		Data:   data,
	}
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return nil, dbError(err, "save_settings", "settings")
	}
	// the conflict path keeps the original id, so read it back
	return ds.GetSettings(ctx, teamID)
}

// CreateTransaction stores tx, assigning an id and pending status when unset.
func (ds *DataStore) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = TransactionPending
	}
	return dbError(ds.DB.WithContext(ctx).Create(tx).Error, "create_transaction", "transactions")
}

// GetTransaction looks a transaction up by id.
func (ds *DataStore) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var tx Transaction
	if err := ds.DB.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "get_transaction", "transactions")
	}
	return &tx, nil
}

// UpdateTransactionStatus moves a pending transaction to status. A
// transaction that already left pending is a conflict.
func (ds *DataStore) UpdateTransactionStatus(ctx context.Context, id string, status TransactionStatus, reason string) (*Transaction, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	var updated Transaction
	err := ds.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		if updated.Status != TransactionPending {
			return errors.Newf("transaction %s is already %s", id, updated.Status).
				Component("datastore").
				Category(errors.CategoryConflict).
				Build()
		}
		updated.Status = status
		updated.FailureReason = reason
		return db.Save(&updated).Error
	})
	if err != nil {
		if errors.IsCategory(err, errors.CategoryConflict) {
			return nil, err
		}
		return nil, dbError(err, "update_transaction", "transactions")
	}
	return &updated, nil
}
