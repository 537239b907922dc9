package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"balemuya/internal/models"

	"github.com/shopspring/decimal"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
	EventTransactionPosted    = "transaction_posted"
	EventWalletCreated        = "wallet_created"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID    int64     `json:"booking_id"`
	ServiceID    int64     `json:"service_id"`
	ServiceTitle string    `json:"service_title"`
	CustomerID   int64     `json:"customer_id"`
	ProviderID   int64     `json:"provider_id"`
	Status       string    `json:"status"`
	FromStatus   string    `json:"from_status,omitempty"`
	Scheduled    time.Time `json:"scheduled_date"`
	Price        string    `json:"price"`
}

// TransactionEventPayload mirrors a posted ledger entry. It carries the
// full snapshot so consumers can rebuild the transaction without a
// database round trip.
type TransactionEventPayload struct {
	TransactionID int64     `json:"transaction_id"`
	WalletID      int64     `json:"wallet_id"`
	Type          string    `json:"transaction_type"`
	Amount        string    `json:"amount"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	Description   string    `json:"description,omitempty"`
	ServiceID     int64     `json:"service_id,omitempty"`
	CustomerID    int64     `json:"customer_id,omitempty"`
	ProviderID    int64     `json:"provider_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionPosted builds the payload for a posted ledger entry.
func TransactionPosted(txn *models.Transaction) TransactionEventPayload {
	return TransactionEventPayload{
		TransactionID: txn.ID,
		WalletID:      txn.WalletID,
		Type:          txn.Type,
		Amount:        txn.Amount.String(),
		ReferenceID:   txn.ReferenceID,
		Description:   txn.Description,
		ServiceID:     txn.ServiceID,
		CustomerID:    txn.CustomerID,
		ProviderID:    txn.ProviderID,
		CreatedAt:     txn.CreatedAt,
	}
}

// Transaction rebuilds the ledger entry from the payload.
func (p TransactionEventPayload) Transaction() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event amount %q: %w", p.Amount, err)
	}
	return &models.Transaction{
		ID:          p.TransactionID,
		WalletID:    p.WalletID,
		Type:        p.Type,
		Amount:      amount,
		ReferenceID: p.ReferenceID,
		Description: p.Description,
		ServiceID:   p.ServiceID,
		CustomerID:  p.CustomerID,
		ProviderID:  p.ProviderID,
		CreatedAt:   p.CreatedAt,
	}, nil
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
