// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"pinturas-backend/internal/database"
	"pinturas-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns a migrated sqlite database private to the calling test.
// Unique violations surface as gorm.ErrDuplicatedKey, which is what the
// folio collision check falls back to when no Postgres error is present.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.TranslateError = true
	cfg.Logger = gormlogger.Discard

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedBranch(t testing.TB, db *gorm.DB, name string) models.Branch {
	t.Helper()
	b := models.Branch{Name: name}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func SeedUser(t testing.TB, db *gorm.DB, name string, role models.UserRole, branchID *uuid.UUID) models.User {
	t.Helper()
	u := models.User{Name: name, Role: role, BranchID: branchID, PinHash: "x", Active: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func SeedInk(t testing.TB, db *gorm.DB, code, name string) models.Ink {
	t.Helper()
	i := models.Ink{Code: code, Name: name, Active: true}
	require.NoError(t, db.Create(&i).Error)
	return i
}
