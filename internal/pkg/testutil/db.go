// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sodiqbhoy1/wears/app/models"
	"github.com/sodiqbhoy1/wears/internal/pkg/database"
)

// NewDB opens a migrated in-memory SQLite database that lives for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database shared across goroutines
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// PaidOrder builds a paid client order draft ready for CreateIfAbsent.
func PaidOrder(ref, email string, createdAt time.Time) *models.Order {
	return &models.Order{
		Reference:  ref,
		Amount:     2500,
		Currency:   models.DEFAULT_CURRENCY,
		Customer:   models.Customer{Name: "Ada", Email: email},
		Items:      []models.OrderItem{{Name: "Tee", Qty: 1, UnitPrice: 2500}},
		Status:     models.ORDER_STATUS_PENDING,
		Paid:       true,
		Source:     models.ORDER_SOURCE_CLIENT,
		EmailState: models.EmailStateNeverAttempted,
		CreatedAt:  createdAt.UTC(),
	}
}

// WaitForCondition polls condition until it holds or timeout passes.
func WaitForCondition(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
