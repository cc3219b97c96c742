// Package dbtest provides throwaway in-memory sources for tests.
package dbtest

import (
	"testing"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a migrated in-memory database.
// The pool is pinned to one connection, every connection to ":memory:" is a separate database.
func New() (*gorm.DB, func(), error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, err
	}
	raw, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	raw.SetMaxOpenConns(1)
	raw.SetMaxIdleConns(1)

	if err := database.RunMigration(db); err != nil {
		_ = raw.Close()
		return nil, nil, err
	}

	return db, func() { _ = raw.Close() }, nil
}

// Use swaps database.C for a fresh source until the test ends.
func Use(t testing.TB) *gorm.DB {
	t.Helper()

	db, closer, err := New()
	if err != nil {
		t.Fatalf("unable to open test database: %v", err)
	}

	prev := database.C
	database.C = db
	t.Cleanup(func() {
		database.C = prev
		closer()
	})

	return db
}
