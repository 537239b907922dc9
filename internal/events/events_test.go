package events

import (
	"encoding/json"
	"testing"
	"time"

	"balemuya/internal/models"

	"github.com/shopspring/decimal"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := BookingEventPayload{BookingID: 5, Status: "pending", Price: "120.00"}
	if err := bus.PublishJSON(EventBookingCreated, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != 5 || decoded.Price != "120.00" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Publish without subscribers must not panic.
	bus.Publish(&Event{Type: "nobody_listens"})

	if err := bus.PublishJSON("nobody_listens", map[string]int{"a": 1}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}
}

func TestTransactionPayloadRoundTrip(t *testing.T) {
	txn := &models.Transaction{
		ID:          42,
		WalletID:    7,
		Type:        models.TxPayment,
		Amount:      decimal.RequireFromString("150.00"),
		ReferenceID: "ref-42",
		Description: "Payment for booking #5",
		ServiceID:   3,
		CustomerID:  11,
		ProviderID:  9,
		CreatedAt:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	rebuilt, err := TransactionPosted(txn).Transaction()
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if rebuilt.ID != txn.ID || rebuilt.WalletID != txn.WalletID || rebuilt.Type != txn.Type {
		t.Errorf("identity fields lost: %+v", rebuilt)
	}
	if !rebuilt.Amount.Equal(txn.Amount) {
		t.Errorf("amount lost: got %s, want %s", rebuilt.Amount, txn.Amount)
	}
	if rebuilt.Description != txn.Description || rebuilt.ReferenceID != txn.ReferenceID {
		t.Errorf("detail fields lost: %+v", rebuilt)
	}
	if !rebuilt.CreatedAt.Equal(txn.CreatedAt) {
		t.Errorf("created_at lost: got %v, want %v", rebuilt.CreatedAt, txn.CreatedAt)
	}

	if _, err := (TransactionEventPayload{Amount: "not-a-number"}).Transaction(); err == nil {
		t.Error("expected error for malformed amount")
	}
}

func TestEventBusNilReceiver(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON("event", nil); err != nil {
		t.Fatalf("nil bus should be a no-op, got %v", err)
	}
}
