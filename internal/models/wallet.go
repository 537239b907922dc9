package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet — кошелек пользователя, один на пользователя.
// Создается лениво при первом обращении.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction — запись журнала, только добавление, без изменений и удалений.
type Transaction struct {
	ID          int64           `json:"id"`
	WalletID    int64           `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"transaction_type"` // deposit, withdraw, payment, refund
	Description string          `json:"description"`
	ServiceID   int64           `json:"service_id,omitempty"`
	CustomerID  int64           `json:"customer_id,omitempty"`
	ProviderID  int64           `json:"provider_id,omitempty"`
	ReferenceID string          `json:"reference_id,omitempty"` // внешний идентификатор платежа, непрозрачный
	CreatedAt   time.Time       `json:"created_at"`
}

// ValidTransactionType проверяет тип операции журнала.
func ValidTransactionType(t string) bool {
	switch t {
	case TxDeposit, TxWithdraw, TxPayment, TxRefund:
		return true
	}
	return false
}
