package service

import (
	"context"
	"testing"

	"balemuya/internal/database"
	"balemuya/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSaveUser(t *testing.T) {
	repo := new(mockRepo)
	svc := NewUserService(repo, &testLogger)

	user := &models.User{TelegramID: "700", FullName: "Alice", Role: models.RoleCustomer}
	repo.On("CreateOrUpdateUser", mock.Anything, user).Return(nil)

	require.NoError(t, svc.SaveUser(context.Background(), user))
	repo.AssertExpectations(t)
}

func TestSaveUserValidation(t *testing.T) {
	repo := new(mockRepo)
	svc := NewUserService(repo, &testLogger)

	tests := []struct {
		name string
		user *models.User
	}{
		{"MissingTelegramID", &models.User{FullName: "No ID"}},
		{"UnknownRole", &models.User{TelegramID: "700", Role: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SaveUser(context.Background(), tt.user)
			assert.ErrorIs(t, err, database.ErrValidation)
		})
	}
	repo.AssertNotCalled(t, "CreateOrUpdateUser")
}

func TestSaveUserEmptyRoleAllowed(t *testing.T) {
	repo := new(mockRepo)
	svc := NewUserService(repo, &testLogger)

	user := &models.User{TelegramID: "700"}
	repo.On("CreateOrUpdateUser", mock.Anything, user).Return(nil)

	require.NoError(t, svc.SaveUser(context.Background(), user))
}

func TestGetUserByTelegramID(t *testing.T) {
	repo := new(mockRepo)
	svc := NewUserService(repo, &testLogger)

	repo.On("GetUserByTelegramID", mock.Anything, "ghost").Return(nil, database.ErrNotFound)

	_, err := svc.GetUserByTelegramID(context.Background(), "ghost")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
