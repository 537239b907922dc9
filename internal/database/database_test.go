package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"balemuya/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, telegramID, role string) *models.User {
	t.Helper()
	user := &models.User{TelegramID: telegramID, FullName: "User " + telegramID, Role: role}
	require.NoError(t, db.CreateOrUpdateUser(context.Background(), user))
	return user
}

func seedService(t *testing.T, db *DB, providerID int64, title, price string) *models.Service {
	t.Helper()
	svc := &models.Service{
		ProviderID: providerID,
		Title:      title,
		Price:      decimal.RequireFromString(price),
		Available:  true,
	}
	require.NoError(t, db.CreateService(context.Background(), svc))
	return svc
}

func seedBooking(t *testing.T, db *DB, svc *models.Service, customerID int64, scheduled time.Time) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ServiceID:     svc.ID,
		ServiceTitle:  svc.Title,
		CustomerID:    customerID,
		ProviderID:    svc.ProviderID,
		ScheduledDate: scheduled,
		Price:         svc.Price,
	}
	require.NoError(t, db.CreateBooking(context.Background(), booking))
	return booking
}
