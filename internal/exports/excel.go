// Package exports выгружает журнал транзакций за период в Excel.
package exports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"balemuya/internal/domain"
	"balemuya/internal/fees"
	"balemuya/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"
const summarySheet = "Summary"

type LedgerExporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewLedgerExporter(repo domain.Repository, path string, logger *zerolog.Logger) *LedgerExporter {
	return &LedgerExporter{
		repo:   repo,
		path:   path,
		logger: logger,
	}
}

// ExportPeriod создает Excel файл с проводками за период и сводкой.
func (e *LedgerExporter) ExportPeriod(ctx context.Context, from, to time.Time) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	txns, err := e.repo.ListTransactionsInRange(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("error getting transactions: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ledgerSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(ledgerSheet, "A1", fmt.Sprintf("Период: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))
	_ = f.MergeCell(ledgerSheet, "A1", "G1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(ledgerSheet, "A1", "A1", headerStyle)

	e.writeLedgerHeaders(f)
	e.writeLedgerRows(f, txns)

	_ = f.SetColWidth(ledgerSheet, "A", "B", 12)
	_ = f.SetColWidth(ledgerSheet, "C", "D", 14)
	_ = f.SetColWidth(ledgerSheet, "E", "F", 30)
	_ = f.SetColWidth(ledgerSheet, "G", "G", 20)

	if err := e.writeSummary(f, txns); err != nil {
		return "", err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("ledger_%s_to_%s.xlsx",
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *LedgerExporter) writeLedgerHeaders(f *excelize.File) {
	headers := []string{"ID", "Кошелек", "Тип", "Сумма", "Референс", "Описание", "Дата"}

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(ledgerSheet, cell, header)
		_ = f.SetCellStyle(ledgerSheet, cell, cell, style)
	}
}

func (e *LedgerExporter) writeLedgerRows(f *excelize.File, txns []*models.Transaction) {
	for i, txn := range txns {
		row := i + 3
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("A%d", row), txn.ID)
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("B%d", row), txn.WalletID)
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("C%d", row), txn.Type)
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("D%d", row), txn.Amount.StringFixed(2))
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("E%d", row), txn.ReferenceID)
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("F%d", row), txn.Description)
		_ = f.SetCellValue(ledgerSheet, fmt.Sprintf("G%d", row), txn.CreatedAt.Format("02.01.2006 15:04"))
	}
}

// writeSummary пишет сводный лист: обороты по типам и комиссия платформы.
func (e *LedgerExporter) writeSummary(f *excelize.File, txns []*models.Transaction) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating summary sheet: %v", err)
	}

	totals := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for _, txn := range txns {
		totals[txn.Type] = totals[txn.Type].Add(txn.Amount)
		counts[txn.Type]++
	}

	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	headers := []string{"Тип", "Количество", "Сумма"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(summarySheet, cell, header)
		_ = f.SetCellStyle(summarySheet, cell, cell, style)
	}

	row := 2
	for _, txType := range []string{models.TxDeposit, models.TxWithdraw, models.TxPayment, models.TxRefund} {
		if counts[txType] == 0 {
			continue
		}
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), txType)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[txType])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), totals[txType].StringFixed(2))
		row++
	}

	// Комиссия платформы считается от валового оборота оплат.
	platformProfit, providerTake := fees.Split(totals[models.TxPayment])
	row++
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Комиссия платформы")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), platformProfit.StringFixed(2))
	row++
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Доход исполнителей")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), providerTake.StringFixed(2))

	_ = f.SetColWidth(summarySheet, "A", "A", 25)
	_ = f.SetColWidth(summarySheet, "B", "C", 15)

	return nil
}
