package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by resulting status.",
		},
		[]string{"status"},
	)

	invalidTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "booking_transitions_rejected_total",
			Help:      "Booking transitions rejected as invalid or conflicting.",
		},
	)

	transactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "wallet_transactions_total",
			Help:      "Ledger transactions posted by type.",
		},
		[]string{"type"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "notifications_total",
			Help:      "Telegram notifications by outcome.",
		},
		[]string{"outcome"},
	)

	sheetsSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "balemuya",
			Name:      "sheets_sync_total",
			Help:      "Ledger sheet sync attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingTransitions,
			invalidTransitions,
			transactions,
			notifications,
			sheetsSync,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingTransition(status string) {
	bookingTransitions.WithLabelValues(status).Inc()
}

func IncInvalidTransition() {
	invalidTransitions.Inc()
}

func IncTransaction(txType string) {
	transactions.WithLabelValues(txType).Inc()
}

func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

func IncSheetsSync(outcome string) {
	sheetsSync.WithLabelValues(outcome).Inc()
}
