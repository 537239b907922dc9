package service

import (
	"context"
	"fmt"

	"balemuya/internal/database"
	"balemuya/internal/domain"
	"balemuya/internal/events"
	"balemuya/internal/fees"
	"balemuya/internal/metrics"
	"balemuya/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletService ведет журнал и балансы. Правила смещения баланса:
// deposit +amount, withdraw -amount, refund -amount, payment +доля
// провайдера от amount (распределение применяется при проводке).
// Баланс всегда равен сумме смещений по журналу кошелька.
type WalletService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewWalletService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *WalletService {
	return &WalletService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// GetWallet возвращает кошелек пользователя, создавая его при первом
// обращении. Повторные вызовы возвращают тот же кошелек.
func (s *WalletService) GetWallet(ctx context.Context, telegramID string) (*models.Wallet, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return s.repo.GetOrCreateWallet(ctx, user.ID)
}

func (s *WalletService) ListTransactions(ctx context.Context, telegramID string) ([]*models.Transaction, error) {
	wallet, err := s.GetWallet(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactionsByWallet(ctx, wallet.ID)
}

func (s *WalletService) Deposit(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	return s.post(ctx, telegramID, models.TxDeposit, amount, amount, referenceID, "Wallet deposit")
}

// Withdraw не дает балансу уйти в минус, остальные операции баланс
// в минус увести не могут.
func (s *WalletService) Withdraw(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	return s.post(ctx, telegramID, models.TxWithdraw, amount, amount.Neg(), referenceID, "Wallet withdrawal")
}

func (s *WalletService) Refund(ctx context.Context, telegramID string, amount decimal.Decimal, referenceID string) (*models.Transaction, error) {
	return s.post(ctx, telegramID, models.TxRefund, amount, amount.Neg(), referenceID, "Refund")
}

func (s *WalletService) post(ctx context.Context, telegramID, txType string, amount, delta decimal.Decimal, referenceID, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", database.ErrValidation)
	}

	wallet, err := s.GetWallet(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CustomerID:  wallet.UserID,
		ReferenceID: referenceID,
	}
	if txn.ReferenceID == "" {
		txn.ReferenceID = uuid.NewString()
	}

	if err := s.repo.ApplyTransaction(ctx, txn, delta); err != nil {
		return nil, err
	}

	s.afterPost(ctx, txn)
	return txn, nil
}

// PostBookingPayment проводит платеж по завершенному бронированию.
// Сумма записи равна полной цене бронирования, кошелек провайдера
// пополняется его долей после вычета комиссии платформы.
func (s *WalletService) PostBookingPayment(ctx context.Context, booking *models.Booking) (*models.Transaction, error) {
	wallet, err := s.repo.GetOrCreateWallet(ctx, booking.ProviderID)
	if err != nil {
		return nil, err
	}

	_, providerTake := fees.Split(booking.Price)

	txn := &models.Transaction{
		WalletID:    wallet.ID,
		Amount:      booking.Price,
		Type:        models.TxPayment,
		Description: fmt.Sprintf("Payment for booking #%d (%s)", booking.ID, booking.ServiceTitle),
		ServiceID:   booking.ServiceID,
		CustomerID:  booking.CustomerID,
		ProviderID:  booking.ProviderID,
		ReferenceID: uuid.NewString(),
	}

	if err := s.repo.ApplyTransaction(ctx, txn, providerTake); err != nil {
		return nil, err
	}

	s.afterPost(ctx, txn)
	return txn, nil
}

// afterPost публикует проводку в шину событий. Зеркалирование журнала
// подписано на это событие, прямой связи сервиса с воркером нет.
func (s *WalletService) afterPost(ctx context.Context, txn *models.Transaction) {
	metrics.IncTransaction(txn.Type)

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventTransactionPosted, events.TransactionPosted(txn)); err != nil {
			s.logger.Error().Err(err).Int64("transaction_id", txn.ID).Msg("publish event error")
		}
	}
}
