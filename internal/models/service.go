package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service — позиция каталога. Ядро читает только цену и провайдера
// при создании бронирования, остальное ведет внешний CRUD.
type Service struct {
	ID          int64           `json:"id" yaml:"id"`
	ProviderID  int64           `json:"provider_id" yaml:"provider_id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Location    string          `json:"location" yaml:"location"`
	Available   bool            `json:"available" yaml:"available"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
}
