package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/logger"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// dsn renders the connection string for the go-sql-driver.
func (store *MySQLStore) dsn() string {
	m := store.Settings.Database.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// Open connects and migrates the schema.
func (store *MySQLStore) Open() error {
	m := store.Settings.Database.MySQL

	db, err := gorm.Open(mysql.Open(store.dsn()), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		getLogger().Error("failed to open MySQL database",
			logger.String("host", m.Host),
			logger.Int("port", m.Port),
			logger.String("database", m.Database),
			logger.Error(err))
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	store.DB = db
	return performAutoMigration(db, "MySQL")
}
