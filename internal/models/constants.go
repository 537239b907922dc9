package models

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	TxDeposit  = "deposit"
	TxWithdraw = "withdraw"
	TxPayment  = "payment"
	TxRefund   = "refund"
)

const (
	// DefaultDashboardDays окно дашборда по умолчанию
	DefaultDashboardDays = 30

	// DefaultTopLimit размер выборки топа по умолчанию
	DefaultTopLimit = 5

	// DashboardCacheTTL время жизни кэша сводки дашборда в секундах
	DashboardCacheTTL = 60

	// NotifyQueueSize размер очереди уведомлений
	NotifyQueueSize = 256

	// NotifyWorkers количество воркеров отправки уведомлений
	NotifyWorkers = 2

	// SyncQueueSize размер очереди синхронизации журнала
	SyncQueueSize = 1000

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 60

	// RateLimitWindow окно ограничения частоты запросов в секундах
	RateLimitWindow = 60
)

const (
	// GranularityDay и далее — гранулярность рядов дашборда
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)
