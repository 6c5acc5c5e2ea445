package database

import (
	"fmt"
	"strings"
	"time"

	"pinturas-backend/internal/config"
	"pinturas-backend/internal/logger"
	"pinturas-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the Postgres connection, migrates the schema and stores the
// handle in DB. Any failure is fatal.
func Init(cfg *config.Config) {
	db, err := Open(cfg)
	if err != nil {
		logger.Get().Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	if err := Migrate(db); err != nil {
		logger.Get().Fatalf("AutoMigrate error: %v", err)
	}

	DB = db
	logger.Get().Info("Conexión a la base de datos lista, migración completada")
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("database DSN must not be empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	return db, nil
}

// GormConfig is shared by the server and the sqlite-backed tests so both see
// UTC timestamps. Errors are left untranslated: the folio collision check
// needs the constraint name carried by the driver error.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	return db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Ink{},
		&models.Mix{},
		&models.MixItem{},
		&models.Cut{},
		&models.AuditLog{},
	)
}
