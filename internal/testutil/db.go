package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/database"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with every model migrated
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache DSN keeps one database per test across pool connections
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// CreateTestUser inserts a verified user with the given email
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	verifiedAt := time.Now().UTC()
	user := &domain.User{
		Email:           email,
		PasswordHash:    "not-a-real-hash",
		FullName:        "Test User",
		EmailVerifiedAt: &verifiedAt,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestSite inserts a site owned by userID
func CreateTestSite(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *domain.Site {
	t.Helper()
	site := &domain.Site{UserID: userID, Name: name}
	require.NoError(t, db.Create(site).Error)
	return site
}
