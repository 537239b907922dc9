package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary — сводка по окну [From, To).
type DashboardSummary struct {
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	GrossRevenue     decimal.Decimal  `json:"gross_revenue"`
	PlatformProfit   decimal.Decimal  `json:"platform_profit"`
	ProviderTake     decimal.Decimal  `json:"providers_take"`
	TransactionCount int64            `json:"transaction_count"`
	BookingsByStatus map[string]int64 `json:"bookings_by_status"`
	NewUsers         int64            `json:"new_users"`
	TotalUsers       int64            `json:"total_users"`
}

// RevenueBucket — одна точка временного ряда, распределение считается
// для каждой корзины отдельно.
type RevenueBucket struct {
	Bucket         string          `json:"bucket"`
	Gross          decimal.Decimal `json:"gross"`
	PlatformProfit decimal.Decimal `json:"platform_profit"`
	ProviderTake   decimal.Decimal `json:"providers_take"`
}

// TopEntry — строка рейтинга провайдеров или услуг по выручке.
type TopEntry struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int64           `json:"transactions"`
}

// AdminStats — быстрая сводка админки по завершенным бронированиям.
type AdminStats struct {
	TotalEarnedDay   decimal.Decimal `json:"total_earned_day"`
	TotalEarnedWeek  decimal.Decimal `json:"total_earned_week"`
	TotalEarnedMonth decimal.Decimal `json:"total_earned_month"`
	TotalEarnedYear  decimal.Decimal `json:"total_earned_year"`

	ShareDay   decimal.Decimal `json:"share_day"`
	ShareWeek  decimal.Decimal `json:"share_week"`
	ShareMonth decimal.Decimal `json:"share_month"`
	ShareYear  decimal.Decimal `json:"share_year"`

	CompletedBookings  int64 `json:"completed_bookings"`
	PendingBookings    int64 `json:"pending_bookings"`
	CancelledBookings  int64 `json:"cancelled_bookings"`
	InProgressBookings int64 `json:"in_progress_bookings"`
}
