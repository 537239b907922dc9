package models

import (
	"database/sql"
	"time"
)

// SyncTask — задача зеркалирования записи журнала во внешнюю таблицу.
type SyncTask struct {
	ID            int64
	TaskType      string
	TransactionID int64
	Payload       string
	Status        string // pending, retry, completed, failed
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
	ProcessedAt   sql.NullTime
	NextRetryAt   sql.NullTime
}
