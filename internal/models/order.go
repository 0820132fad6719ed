package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus values.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is one checkout transaction.
type Order struct {
	ID                 uuid.UUID                 `json:"id"`
	Number             string                    `json:"number"`
	UserID             uuid.UUID                 `json:"user_id"`
	Status             string                    `json:"status"`
	Subtotal           decimal.Decimal           `json:"subtotal"`
	Discount           decimal.Decimal           `json:"discount"`
	Total              decimal.Decimal           `json:"total"`
	CouponID           *uuid.UUID                `json:"coupon_id,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	CourseItems        []*OrderCourseItem        `json:"course_items"`
	CertificationItems []*OrderCertificationItem `json:"certification_items"`
}

// IsPayable reports whether the order can still be paid.
func (o *Order) IsPayable() bool {
	return o.Status == OrderStatusPending
}

// OrderCourseItem snapshots a course line at order time.
type OrderCourseItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	CourseID  uuid.UUID       `json:"course_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	// SeatsTaken is how many course slots confirmation actually consumed.
	SeatsTaken int `json:"seats_taken"`
}

// LineTotal is unit price times quantity.
func (i *OrderCourseItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderCertificationItem snapshots a certification line at order time.
type OrderCertificationItem struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	CertificationID uuid.UUID       `json:"certification_id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (i *OrderCertificationItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Invoice is the immutable accounting snapshot of a confirmed order.
type Invoice struct {
	ID       uuid.UUID       `json:"id"`
	OrderID  uuid.UUID       `json:"order_id"`
	Number   string          `json:"number"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	IssuedAt time.Time       `json:"issued_at"`
}
