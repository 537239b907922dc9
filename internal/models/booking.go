package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID            int64           `json:"id"`
	ServiceID     int64           `json:"service_id"`
	ServiceTitle  string          `json:"service_title"`
	CustomerID    int64           `json:"customer_id"`
	ProviderID    int64           `json:"provider_id"` // всегда провайдер услуги на момент создания
	Status        string          `json:"status"`      // pending, confirmed, in_progress, completed, cancelled
	ScheduledDate time.Time       `json:"scheduled_date"`
	Notes         string          `json:"notes"`
	Price         decimal.Decimal `json:"price"` // снимок цены услуги на момент создания
	CreatedAt     time.Time       `json:"created_at"`
	Version       int64           `json:"version"` // растет на каждую запись, защита от гонки переходов
}

// allowedTransitions — полная таблица переходов статусов.
// Любая пара вне таблицы отклоняется.
var allowedTransitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCancelled, StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition проверяет допустимость перехода current -> next.
func CanTransition(current, next string) bool {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminalStatus сообщает, что статус финальный.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ValidStatus проверяет, что строка вообще является статусом бронирования.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// SortSchedule упорядочивает бронирования для выдачи клиенту и провайдеру:
// будущие (scheduled_date >= now) по возрастанию даты, затем прошедшие
// по убыванию. Сортировка стабильная, порядок вставки сохраняется при
// равных датах.
func SortSchedule(bookings []*Booking, now time.Time) {
	sort.SliceStable(bookings, func(i, j int) bool {
		bi, bj := bookings[i], bookings[j]
		fi := !bi.ScheduledDate.Before(now)
		fj := !bj.ScheduledDate.Before(now)
		if fi != fj {
			return fi
		}
		if fi {
			return bi.ScheduledDate.Before(bj.ScheduledDate)
		}
		return bi.ScheduledDate.After(bj.ScheduledDate)
	})
}
