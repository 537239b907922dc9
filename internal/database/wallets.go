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

// GetOrCreateWallet возвращает кошелек пользователя, создавая его при
// первом обращении. Повторный вызов возвращает тот же кошелек:
// уникальный индекс по user_id не дает создать дубликат.
func (db *DB) GetOrCreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := db.getWalletByUserID(ctx, db.DB, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO wallets (user_id, balance, created_at, updated_at)
              VALUES (?, '0', ?, ?)
              ON CONFLICT(user_id) DO NOTHING`
	if _, err := db.ExecContext(ctx, query, userID, now, now); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return db.getWalletByUserID(ctx, db.DB, userID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (db *DB) getWalletByUserID(ctx context.Context, q queryRower, userID int64) (*models.Wallet, error) {
	query := `SELECT id, user_id, balance, created_at, updated_at FROM wallets WHERE user_id = ?`
	return scanWallet(q.QueryRowContext(ctx, query, userID))
}

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	var wallet models.Wallet
	var balanceStr string
	err := row.Scan(&wallet.ID, &wallet.UserID, &balanceStr, &wallet.CreatedAt, &wallet.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet balance %s: %w", balanceStr, err)
	}
	return &wallet, nil
}

// ApplyTransaction добавляет запись журнала и двигает баланс кошелька на
// delta в одной транзакции. Чтение баланса, проверка и запись сериализованы
// на уровне кошелька, параллельные проводки не теряют обновления.
// Журнал записывается как есть, записи не изменяются и не удаляются.
func (db *DB) ApplyTransaction(ctx context.Context, txn *models.Transaction, delta decimal.Decimal) error {
	if !models.ValidTransactionType(txn.Type) {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, txn.Type)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var balanceStr string
	err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id = ?`, txn.WalletID).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read wallet balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return fmt.Errorf("failed to parse wallet balance %s: %w", balanceStr, err)
	}

	newBalance := balance.Add(delta)
	if txn.Type == models.TxWithdraw && newBalance.IsNegative() {
		return ErrInsufficientFunds
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (wallet_id, amount, transaction_type, description,
             service_id, customer_id, provider_id, reference_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.WalletID,
		txn.Amount.String(),
		txn.Type,
		txn.Description,
		txn.ServiceID,
		txn.CustomerID,
		txn.ProviderID,
		txn.ReferenceID,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`,
		newBalance.String(), now, txn.WalletID,
	); err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	txn.ID = id
	txn.CreatedAt = now
	return nil
}

// ListTransactionsByWallet возвращает журнал кошелька, новые записи первыми
func (db *DB) ListTransactionsByWallet(ctx context.Context, walletID int64) ([]*models.Transaction, error) {
	query := `SELECT id, wallet_id, amount, transaction_type, description,
                     service_id, customer_id, provider_id, reference_id, created_at
              FROM transactions WHERE wallet_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var amountStr string
	err := row.Scan(
		&txn.ID, &txn.WalletID, &amountStr, &txn.Type, &txn.Description,
		&txn.ServiceID, &txn.CustomerID, &txn.ProviderID, &txn.ReferenceID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction amount %s: %w", amountStr, err)
	}
	return &txn, nil
}
