// Package google зеркалирует журнал транзакций в Google Sheets.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"balemuya/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const ledgerRange = "Ledger"

type LedgerSheets struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewLedgerSheets(credentialsFile, spreadsheetID string) (*LedgerSheets, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	// Создаем JWT конфигурацию
	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &LedgerSheets{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *LedgerSheets) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, ledgerRange+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *LedgerSheets) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// AppendTransaction дописывает проводку в конец листа журнала.
func (s *LedgerSheets) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn == nil {
		return fmt.Errorf("transaction is nil")
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{transactionRowValues(txn)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, ledgerRange+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// ReplaceLedgerSheet полностью перезаписывает лист журнала
func (s *LedgerSheets) ReplaceLedgerSheet(ctx context.Context, txns []*models.Transaction) error {
	clearRange := ledgerRange + "!A:Z"
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear ledger sheet: %v", err)
	}

	var values [][]interface{}

	// Заголовки
	headers := []interface{}{"ID", "Wallet ID", "Type", "Amount", "Reference", "Description", "Created At"}
	values = append(values, headers)

	for _, txn := range txns {
		values = append(values, transactionRowValues(txn))
	}

	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, ledgerRange+"!A1", valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update ledger sheet: %v", err)
	}

	return nil
}

func transactionRowValues(txn *models.Transaction) []interface{} {
	return []interface{}{
		txn.ID,
		txn.WalletID,
		txn.Type,
		txn.Amount.StringFixed(2),
		txn.ReferenceID,
		txn.Description,
		txn.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
