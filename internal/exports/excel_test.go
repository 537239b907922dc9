package exports

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"balemuya/internal/database"
	"balemuya/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "exports.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTransactions(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()

	user := &models.User{TelegramID: "9001", FullName: "Exporter"}
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))

	wallet, err := db.GetOrCreateWallet(ctx, user.ID)
	require.NoError(t, err)

	entries := []struct {
		txType string
		amount string
	}{
		{models.TxDeposit, "300.00"},
		{models.TxPayment, "100.00"},
		{models.TxPayment, "50.00"},
	}
	for _, e := range entries {
		amount := decimal.RequireFromString(e.amount)
		txn := &models.Transaction{
			WalletID:    wallet.ID,
			Amount:      amount,
			Type:        e.txType,
			Description: "test entry",
			ReferenceID: "ref-" + e.txType,
		}
		require.NoError(t, db.ApplyTransaction(ctx, txn, amount))
	}
}

func TestExportPeriod(t *testing.T) {
	db := newTestDB(t)
	seedTransactions(t, db)

	logger := zerolog.New(io.Discard)
	exporter := NewLedgerExporter(db, filepath.Join(t.TempDir(), "out"), &logger)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	path, err := exporter.ExportPeriod(context.Background(), from, to)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "ledger_")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Ledger sheet: header row plus one row per transaction.
	header, err := f.GetCellValue("Ledger", "A2")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	require.Len(t, rows, 5) // period line + headers + 3 transactions

	amount, err := f.GetCellValue("Ledger", "D3")
	require.NoError(t, err)
	assert.Equal(t, "300.00", amount)

	// Summary sheet: per-type totals and the platform fee split of payments.
	summaryRows, err := f.GetRows("Summary")
	require.NoError(t, err)

	cells := map[string]string{}
	for _, row := range summaryRows {
		if len(row) >= 3 {
			cells[row[0]] = row[2]
		}
	}
	assert.Equal(t, "300.00", cells["deposit"])
	assert.Equal(t, "150.00", cells["payment"])
	assert.Equal(t, "15.00", cells["Комиссия платформы"])
	assert.Equal(t, "135.00", cells["Доход исполнителей"])
}

func TestExportPeriodEmpty(t *testing.T) {
	db := newTestDB(t)

	logger := zerolog.New(io.Discard)
	exporter := NewLedgerExporter(db, filepath.Join(t.TempDir(), "out"), &logger)

	path, err := exporter.ExportPeriod(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// No transactions, but the fee split rows are still written as zeros.
	summaryRows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.NotEmpty(t, summaryRows)
}
