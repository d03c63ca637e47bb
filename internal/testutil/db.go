package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/db"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

var testDatabaseURL string

func init() {
	loadTestEnv()
}

// loadTestEnv loads the .env file and picks up an optional PostgreSQL URL for tests.
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	// Try to load .env from project root (2 levels up from this file)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}
	testDatabaseURL = os.Getenv("TEST_DATABASE_URL")
}

// SetupTestDB returns a migrated, empty database. Without TEST_DATABASE_URL it is a
// private in-memory SQLite database that disappears with the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testDatabaseURL != "" {
		return setupPostgresTestDB(t)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=0", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "Failed to open SQLite test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes transactions.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb), "Failed to migrate test database")
	return gdb
}

func setupPostgresTestDB(t *testing.T) *gorm.DB {
	gdb, err := db.ConnectDB(testDatabaseURL, 5, 2)
	require.NoError(t, err, "Failed to connect to PostgreSQL")
	t.Cleanup(func() { _ = db.DisconnectDB(gdb) })

	// Drop tables for clean state
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		require.NoError(t, gdb.Migrator().DropTable(all[i]))
	}
	require.NoError(t, db.Migrate(gdb), "Failed to migrate test database")
	return gdb
}

// GetTestDatabaseURL returns the PostgreSQL URL tests run against, if any.
func GetTestDatabaseURL() string {
	return testDatabaseURL
}
