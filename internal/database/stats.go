package database

import (
	"context"
	"fmt"
	"time"

	"balemuya/internal/models"
)

// ListTransactionsInRange возвращает журнал за окно [from, to) в порядке
// создания. Денежные агрегаты по нему считает сервис дашборда на decimal,
// суммирование в SQL свело бы TEXT-суммы к float.
func (db *DB) ListTransactionsInRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	query := `SELECT id, wallet_id, amount, transaction_type, description,
                     service_id, customer_id, provider_id, reference_id, created_at
              FROM transactions WHERE created_at >= ? AND created_at < ?
              ORDER BY created_at, id`
	rows, err := db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in range: %w", err)
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
