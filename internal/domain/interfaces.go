package domain

import (
	"context"
	"time"

	"balemuya/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersJoined(ctx context.Context, from, to time.Time) (int64, error)

	CreateService(ctx context.Context, svc *models.Service) error
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context) ([]*models.Service, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	TransitionBookingStatus(ctx context.Context, id int64, newStatus string) (*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error)
	ListBookingsByProvider(ctx context.Context, providerID int64) ([]*models.Booking, error)
	CountBookingsByStatus(ctx context.Context, from, to time.Time) (map[string]int64, error)
	CompletedBookingsSince(ctx context.Context, since time.Time) (decimal.Decimal, error)

	GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	ApplyTransaction(ctx context.Context, txn *models.Transaction, delta decimal.Decimal) error
	ListTransactionsByWallet(ctx context.Context, walletID int64) ([]*models.Transaction, error)
	ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error)

	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// Notifier отправляет сообщение пользователю. Доставка best-effort:
// вызов не блокирует и никогда не возвращает ошибку вызывающему.
type Notifier interface {
	Notify(telegramID string, message, buttonText, buttonURL string)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

type TelegramService interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
}

// Cache хранит сериализованные ответы с TTL и счетчики частоты запросов.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LedgerSheetsWriter зеркалирует журнал в Google Sheets.
type LedgerSheetsWriter interface {
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
	ReplaceLedgerSheet(ctx context.Context, txns []*models.Transaction) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, customerTelegramID string, serviceID int64, scheduledDate time.Time, notes string) (*models.Booking, error)
	TransitionBooking(ctx context.Context, bookingID int64, newStatus string) (*models.Booking, error)
	ListCustomerBookings(ctx context.Context, customerTelegramID string) ([]*models.Booking, error)
	ListProviderBookings(ctx context.Context, providerTelegramID string) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

type WalletService interface {
	GetWallet(ctx context.Context, telegramID string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, telegramID string) ([]*models.Transaction, error)
	Deposit(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error)
	Withdraw(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error)
	Refund(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error)
	PostBookingPayment(ctx context.Context, booking *models.Booking) (*models.Transaction, error)
}

type DashboardService interface {
	Summary(ctx context.Context, from, to time.Time) (*models.DashboardSummary, error)
	Timeseries(ctx context.Context, from, to time.Time, granularity string) ([]models.RevenueBucket, error)
	Top(ctx context.Context, from, to time.Time, by string, limit int) ([]models.TopEntry, error)
	Stats(ctx context.Context) (*models.AdminStats, error)
}

type UserService interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error)
}
