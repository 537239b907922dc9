package service

import (
	"context"
	"time"

	"balemuya/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockRepo) GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CountUsersJoined(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) CreateService(ctx context.Context, svc *models.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockRepo) GetService(ctx context.Context, id int64) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockRepo) ListServices(ctx context.Context) ([]*models.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Service), args.Error(1)
}

func (m *mockRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) TransitionBookingStatus(ctx context.Context, id int64, newStatus string) (*models.Booking, error) {
	args := m.Called(ctx, id, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockRepo) ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockRepo) ListBookingsByProvider(ctx context.Context, providerID int64) ([]*models.Booking, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockRepo) CountBookingsByStatus(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockRepo) CompletedBookingsSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockRepo) GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockRepo) ApplyTransaction(ctx context.Context, txn *models.Transaction, delta decimal.Decimal) error {
	args := m.Called(ctx, txn, delta)
	return args.Error(0)
}

func (m *mockRepo) ListTransactionsByWallet(ctx context.Context, walletID int64) ([]*models.Transaction, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *mockRepo) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *mockRepo) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *mockRepo) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SyncTask), args.Error(1)
}

func (m *mockRepo) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	args := m.Called(ctx, id, status, errMsg, nextRetryAt)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(telegramID, message, buttonText, buttonURL string) {
	m.Called(telegramID, message, buttonText, buttonURL)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

type mockWallets struct {
	mock.Mock
}

func (m *mockWallets) GetWallet(ctx context.Context, telegramID string) (*models.Wallet, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWallets) ListTransactions(ctx context.Context, telegramID string) ([]*models.Transaction, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *mockWallets) Deposit(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	args := m.Called(ctx, telegramID, amount, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockWallets) Withdraw(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	args := m.Called(ctx, telegramID, amount, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockWallets) Refund(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	args := m.Called(ctx, telegramID, amount, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockWallets) PostBookingPayment(ctx context.Context, booking *models.Booking) (*models.Transaction, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}
