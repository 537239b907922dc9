package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"balemuya/internal/models"

	"github.com/shopspring/decimal"
)

const bookingColumns = `id, service_id, service_title, customer_id, provider_id,
                 status, scheduled_date, notes, price, created_at, version`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	now := time.Now()

	query := `INSERT INTO bookings (
				service_id, service_title, customer_id, provider_id,
				status, scheduled_date, notes, price, created_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		booking.ServiceID,
		booking.ServiceTitle,
		booking.CustomerID,
		booking.ProviderID,
		booking.Status,
		booking.ScheduledDate,
		booking.Notes,
		booking.Price.String(),
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// TransitionBookingStatus валидирует и применяет переход статуса через
// оптимистичную блокировку: переход проверяется против состояния,
// прочитанного в начале операции, а UPDATE обусловлен той же версией
// строки. Если параллельный переход записался первым, версия уже выросла,
// условный UPDATE не затрагивает строк и операция завершается
// ErrConcurrentModification без повторной валидации по свежему статусу.
// Из двух параллельных переходов проходит ровно один.
func (db *DB) TransitionBookingStatus(ctx context.Context, id int64, newStatus string) (*models.Booking, error) {
	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	booking, err := db.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, newStatus)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1 WHERE id = ? AND status = ? AND version = ?`,
		newStatus, id, booking.Status, booking.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("%w: booking %d", ErrConcurrentModification, id)
	}

	booking.Status = newStatus
	booking.Version++
	return booking, nil
}

// ListBookingsByCustomer возвращает бронирования клиента в порядке создания
func (db *DB) ListBookingsByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = ? ORDER BY created_at, id`
	return db.listBookings(ctx, query, customerID)
}

// ListBookingsByProvider возвращает бронирования провайдера в порядке создания
func (db *DB) ListBookingsByProvider(ctx context.Context, providerID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_id = ? ORDER BY created_at, id`
	return db.listBookings(ctx, query, providerID)
}

func (db *DB) listBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// CountBookingsByStatus считает бронирования по статусам, созданные в окне [from, to)
func (db *DB) CountBookingsByStatus(ctx context.Context, from, to time.Time) (map[string]int64, error) {
	query := `SELECT status, COUNT(*) FROM bookings
              WHERE created_at >= ? AND created_at < ? GROUP BY status`
	rows, err := db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CompletedBookingsSince суммирует цены завершенных бронирований с
// scheduled_date не раньше since. Используется сводкой админки.
func (db *DB) CompletedBookingsSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	query := `SELECT price FROM bookings WHERE status = ? AND scheduled_date >= ?`
	rows, err := db.QueryContext(ctx, query, models.StatusCompleted, since)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum completed bookings: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var priceStr string
		if err := rows.Scan(&priceStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan booking price: %w", err)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse booking price %s: %w", priceStr, err)
		}
		total = total.Add(price)
	}
	return total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var booking models.Booking
	var priceStr string
	err := row.Scan(
		&booking.ID, &booking.ServiceID, &booking.ServiceTitle,
		&booking.CustomerID, &booking.ProviderID, &booking.Status,
		&booking.ScheduledDate, &booking.Notes, &priceStr, &booking.CreatedAt,
		&booking.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	booking.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking price %s: %w", priceStr, err)
	}
	return &booking, nil
}
