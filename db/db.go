package db

import (
	"fmt"
	"os"
	"path/filepath"

	"wawebhook/config"
	"wawebhook/logger"
	"wawebhook/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

// Connect abre conexão com DB (sqlite3 por padrão) e faz automigrate quando habilitado.
func Connect(conf config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch conf.Database {
	case "postgres", "postgresql":
		log.Info("Using postgresql connection", "host", conf.DbHost, "db", conf.DbName)
		dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
			conf.DbHost, conf.DbPort, conf.DbUser, conf.DbName, conf.DbPass)
		db, err = Open("postgres", dsn)
	default:
		log.Info("Using sqlite3 connection", "path", conf.DbPath)
		if dir := filepath.Dir(conf.DbPath); dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, mkErr
			}
		}
		db, err = Open("sqlite3", conf.DbPath)
		if err == nil {
			// sqlite serializes writers anyway; one connection avoids "database is locked"
			db.DB().SetMaxOpenConns(1)
		}
	}
	if err != nil {
		log.Error("Got error when connect database", "error", err)
		return nil, err
	}

	db.LogMode(!conf.IsProd())

	if conf.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("Database migrated")
	}

	return db, nil
}

// Open connects with the given gorm dialect and dsn.
func Open(dialect, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	db.SingularTable(false)
	return db, nil
}

// Migrate creates/updates the webhook tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Message{},
		&models.MessageStatus{},
		&models.MessageProcessing{},
	).Error
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
