package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventOrderConfirmed       = "OrderConfirmed"
	EventOrderCancelled       = "OrderCancelled"
	EventPaymentStatusChanged = "PaymentStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "shop-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type LinePayload struct {
	ProductID  int64 `json:"product_id"`
	Qty        int   `json:"qty"`
	PriceCents int64 `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID       int64         `json:"order_id"`
	OwnerID       int64         `json:"owner_id"`
	Lines         []LinePayload `json:"lines"`
	TotalCents    int64         `json:"total_cents"`
	DiscountCents int64         `json:"discount_cents,omitempty"`
}

type OrderConfirmedPayload struct {
	OrderID int64 `json:"order_id"`
	OwnerID int64 `json:"owner_id"`
}

type OrderCancelledPayload struct {
	OrderID int64 `json:"order_id"`
	OwnerID int64 `json:"owner_id"`
	ActorID int64 `json:"actor_id"`
}

type PaymentStatusChangedPayload struct {
	OrderID       int64  `json:"order_id"`
	PaymentID     int64  `json:"payment_id"`
	Method        string `json:"method"`
	Status        string `json:"status"`
	ExternalTxnID string `json:"external_txn_id,omitempty"`
}
