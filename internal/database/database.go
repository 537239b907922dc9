package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite не рассчитан на параллельные записи через пул соединений
	sqlDB.SetMaxOpenConns(1)

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: sqlDB, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Таблица пользователей
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            telegram_id TEXT UNIQUE NOT NULL,
            username TEXT,
            full_name TEXT,
            phone TEXT,
            role TEXT NOT NULL DEFAULT 'customer',
            joined_at DATETIME NOT NULL
        )`,
		// Каталог услуг (ядро читает цену и провайдера)
		`CREATE TABLE IF NOT EXISTS services (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            provider_id INTEGER NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT,
            price TEXT NOT NULL,
            location TEXT,
            available BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL
        )`,
		// Таблица бронирований
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            service_id INTEGER NOT NULL REFERENCES services(id),
            service_title TEXT NOT NULL,
            customer_id INTEGER NOT NULL REFERENCES users(id),
            provider_id INTEGER NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            scheduled_date DATETIME NOT NULL,
            notes TEXT,
            price TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		// Кошельки, один на пользователя
		`CREATE TABLE IF NOT EXISTS wallets (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER UNIQUE NOT NULL REFERENCES users(id),
            balance TEXT NOT NULL DEFAULT '0',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		// Журнал операций, только добавление
		`CREATE TABLE IF NOT EXISTS transactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            wallet_id INTEGER NOT NULL REFERENCES wallets(id),
            amount TEXT NOT NULL,
            transaction_type TEXT NOT NULL,
            description TEXT,
            service_id INTEGER,
            customer_id INTEGER,
            provider_id INTEGER,
            reference_id TEXT,
            created_at DATETIME NOT NULL
        )`,
		// Очередь синхронизации журнала
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            transaction_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_users_telegram_id ON users(telegram_id)`,
		`CREATE INDEX IF NOT EXISTS idx_services_provider_id ON services(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer_id ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_provider_id ON bookings(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_wallet_id ON transactions(wallet_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
