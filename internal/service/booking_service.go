package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"balemuya/internal/database"
	"balemuya/internal/domain"
	"balemuya/internal/events"
	"balemuya/internal/metrics"
	"balemuya/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo        domain.Repository
	eventBus    domain.EventPublisher
	notifier    domain.Notifier
	wallets     domain.WalletService
	frontendURL string
	logger      *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, notifier domain.Notifier, wallets domain.WalletService, frontendURL string, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:        repo,
		eventBus:    eventBus,
		notifier:    notifier,
		wallets:     wallets,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// CreateBooking создает бронирование со статусом pending. Цена и провайдер
// снимаются с услуги в момент создания и дальше не зависят от каталога.
func (s *BookingService) CreateBooking(ctx context.Context, customerTelegramID string, serviceID int64, scheduledDate time.Time, notes string) (*models.Booking, error) {
	if scheduledDate.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_date is required", database.ErrValidation)
	}

	customer, err := s.repo.GetUserByTelegramID(ctx, customerTelegramID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}

	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service: %w", err)
	}

	booking := &models.Booking{
		ServiceID:     svc.ID,
		ServiceTitle:  svc.Title,
		CustomerID:    customer.ID,
		ProviderID:    svc.ProviderID,
		Status:        models.StatusPending,
		ScheduledDate: scheduledDate,
		Notes:         notes,
		Price:         svc.Price,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishBookingEvent(events.EventBookingCreated, booking, "")

	// Уведомления не влияют на результат создания
	s.notifyUser(ctx, booking.CustomerID,
		fmt.Sprintf("Your booking for %s is created!", booking.ServiceTitle),
		"View Booking", s.frontendURL+"/bookings")
	s.notifyUser(ctx, booking.ProviderID,
		fmt.Sprintf("New booking for your service: %s", booking.ServiceTitle),
		"View Provider Dashboard", s.frontendURL+"/provider-dashboard")

	return booking, nil
}

// TransitionBooking применяет переход статуса по таблице переходов.
// Переход in_progress -> completed дополнительно проводит платеж в журнале.
func (s *BookingService) TransitionBooking(ctx context.Context, bookingID int64, newStatus string) (*models.Booking, error) {
	booking, err := s.repo.TransitionBookingStatus(ctx, bookingID, newStatus)
	if err != nil {
		if errors.Is(err, database.ErrInvalidTransition) || errors.Is(err, database.ErrConcurrentModification) {
			metrics.IncInvalidTransition()
		}
		return nil, err
	}

	metrics.IncBookingTransition(newStatus)
	s.publishBookingEvent(events.EventBookingStatusChanged, booking, newStatus)

	if newStatus == models.StatusCompleted && s.wallets != nil {
		if _, err := s.wallets.PostBookingPayment(ctx, booking); err != nil {
			// Переход уже зафиксирован и не откатывается. Автоматического
			// повтора проводки нет: ошибка только логируется, недостающий
			// платеж восстанавливается сверкой журнала с завершенными
			// бронированиями.
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("post booking payment error")
		}
	}

	s.notifyUser(ctx, booking.CustomerID,
		fmt.Sprintf("Your booking for %s status changed to %s!", booking.ServiceTitle, booking.Status),
		"View Booking", s.frontendURL+"/bookings")
	s.notifyUser(ctx, booking.ProviderID,
		fmt.Sprintf("Booking for your service %s status changed to %s!", booking.ServiceTitle, booking.Status),
		"View Provider Dashboard", s.frontendURL+"/provider-dashboard")

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ListCustomerBookings возвращает бронирования клиента: ближайшие будущие
// первыми, затем прошедшие от недавних к давним.
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerTelegramID string) ([]*models.Booking, error) {
	customer, err := s.repo.GetUserByTelegramID(ctx, customerTelegramID)
	if err != nil {
		return nil, fmt.Errorf("resolve customer: %w", err)
	}

	bookings, err := s.repo.ListBookingsByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	models.SortSchedule(bookings, time.Now())
	return bookings, nil
}

// ListProviderBookings — то же упорядочивание, что и для клиента
func (s *BookingService) ListProviderBookings(ctx context.Context, providerTelegramID string) ([]*models.Booking, error) {
	provider, err := s.repo.GetUserByTelegramID(ctx, providerTelegramID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	bookings, err := s.repo.ListBookingsByProvider(ctx, provider.ID)
	if err != nil {
		return nil, err
	}
	models.SortSchedule(bookings, time.Now())
	return bookings, nil
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking, fromStatus string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		ServiceID:    booking.ServiceID,
		ServiceTitle: booking.ServiceTitle,
		CustomerID:   booking.CustomerID,
		ProviderID:   booking.ProviderID,
		Status:       booking.Status,
		FromStatus:   fromStatus,
		Scheduled:    booking.ScheduledDate,
		Price:        booking.Price.String(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

// notifyUser разрешает telegram_id получателя и ставит уведомление в
// очередь. Любая ошибка глотается: корректность бронирования не зависит
// от доставки.
func (s *BookingService) notifyUser(ctx context.Context, userID int64, message, buttonText, buttonURL string) {
	if s.notifier == nil {
		return
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("notify: resolve user error")
		return
	}

	s.notifier.Notify(user.TelegramID, message, buttonText, buttonURL)
}
