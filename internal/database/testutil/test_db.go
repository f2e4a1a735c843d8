// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/database"
)

type schemaLevel int

const (
	schemaNone schemaLevel = iota
	schemaMigrated
	schemaSeeded
)

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// TestDBOption adjusts how much schema MustOpenTestDB prepares.
type TestDBOption func(*schemaLevel)

// WithAutoMigrate creates every table.
func WithAutoMigrate() TestDBOption {
	return func(level *schemaLevel) { *level = max(*level, schemaMigrated) }
}

// WithSeedData creates every table and inserts the default location communities.
func WithSeedData() TestDBOption {
	return func(level *schemaLevel) { *level = schemaSeeded }
}

// MustOpenTestDB returns a named in-memory SQLite database that only t can see. The handle is
// closed when the test finishes.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	level := schemaNone
	for _, opt := range opts {
		opt(&level)
	}

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    database.MemoryDSN(nonIdentifier.ReplaceAllString(t.Name(), "_")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	switch level {
	case schemaSeeded:
		require.NoError(t, database.AutoMigrateAndSeed(db))
	case schemaMigrated:
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}
