package database

import (
	"context"
	"testing"
	"time"

	"balemuya/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &models.User{TelegramID: "500", FullName: "Alice", Phone: "+111"}
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))
	require.NotZero(t, user.ID)
	assert.Equal(t, models.RoleCustomer, user.Role, "role defaults to customer")

	// Upsert keeps the id and does not wipe the phone with an empty value.
	update := &models.User{TelegramID: "500", FullName: "Alice Updated", Role: models.RolePro}
	require.NoError(t, db.CreateOrUpdateUser(ctx, update))
	assert.Equal(t, user.ID, update.ID)

	got, err := db.GetUserByTelegramID(ctx, "500")
	require.NoError(t, err)
	assert.Equal(t, "Alice Updated", got.FullName)
	assert.Equal(t, models.RolePro, got.Role)
	assert.Equal(t, "+111", got.Phone)
}

func TestGetUserNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByTelegramID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetUserByID(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedUser(t, db, "501", models.RoleCustomer)
	seedUser(t, db, "502", models.RolePro)

	total, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	joined, err := db.CountUsersJoined(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), joined)

	joined, err = db.CountUsersJoined(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, joined)
}
