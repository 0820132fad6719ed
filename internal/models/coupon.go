package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponDiscountType is percent or fixed.
const (
	CouponDiscountPercent = "PERCENT"
	CouponDiscountFixed   = "FIXED"
)

// Coupon is a discount code with a validity window and a usage cap.
type Coupon struct {
	ID            uuid.UUID       `json:"id"`
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MaxUses       int             `json:"max_uses"`
	UsedCount     int             `json:"used_count"`
	ValidFrom     time.Time       `json:"valid_from"`
	ValidUntil    time.Time       `json:"valid_until"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InWindow reports whether now falls inside [ValidFrom, ValidUntil].
func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// HasUsesLeft reports whether the usage cap has not been reached.
func (c *Coupon) HasUsesLeft() bool {
	return c.UsedCount < c.MaxUses
}
