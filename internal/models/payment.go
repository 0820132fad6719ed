package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment method tags for the simulated gateway.
const (
	PaymentMethodSimulated     = "SIMULATED"
	PaymentMethodSimulatedCard = "SIMULATED_CARD"
)

// PaymentStatus for payments.
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Payment records the outcome of paying one order.
type Payment struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	TransactionRef string          `json:"transaction_ref"`
	CreatedAt      time.Time       `json:"created_at"`
}
