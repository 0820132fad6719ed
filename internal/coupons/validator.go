// Package coupons validates discount codes and remembers the one a user applied.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	ErrNotFound  = errors.New("coupon not valid")
	ErrExpired   = errors.New("coupon expired or not yet valid")
	ErrExhausted = errors.New("coupon has no uses left")
)

var hundred = decimal.NewFromInt(100)

// Check validates the validity window first, then the usage cap.
func Check(c *models.Coupon, now time.Time) error {
	if !c.InWindow(now) {
		return ErrExpired
	}
	if !c.HasUsesLeft() {
		return ErrExhausted
	}
	return nil
}

// Discount returns the amount to subtract from subtotal. It is never negative and never exceeds subtotal.
func Discount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil || !subtotal.IsPositive() || !c.DiscountValue.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.DiscountType {
	case models.CouponDiscountPercent:
		d = subtotal.Mul(c.DiscountValue).Div(hundred).RoundBank(2)
	case models.CouponDiscountFixed:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// SessionStore keeps the applied coupon code per user. Get returns "" when nothing is stored.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Validator applies coupons and re-validates the applied one on every read.
type Validator struct {
	q        store.Querier
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewValidator creates a coupon validator.
func NewValidator(q store.Querier, sessions SessionStore, ttl time.Duration, now func() time.Time, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{q: q, sessions: sessions, ttl: ttl, now: now, logger: logger}
}

func sessionKey(userID uuid.UUID) string {
	return "coupon:applied:" + userID.String()
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply validates code and stores it as the user's applied coupon.
func (v *Validator) Apply(ctx context.Context, userID uuid.UUID, code string) (*models.Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}
	c, err := v.q.GetCouponByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if err := Check(c, v.now()); err != nil {
		return nil, err
	}
	if err := v.sessions.Set(ctx, sessionKey(userID), c.Code, v.ttl); err != nil {
		return nil, fmt.Errorf("store applied coupon: %w", err)
	}
	v.logger.Debug("coupon applied", zap.String("user_id", userID.String()), zap.String("code", c.Code))
	return c, nil
}

// GetApplied returns the applied coupon if it is still valid. An applied coupon that
// disappeared, expired or ran out of uses is cleared and nil is returned.
func (v *Validator) GetApplied(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	code, err := v.sessions.Get(ctx, sessionKey(userID))
	if err != nil {
		return nil, fmt.Errorf("read applied coupon: %w", err)
	}
	if code == "" {
		return nil, nil
	}
	c, err := v.q.GetCouponByCode(ctx, code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if c == nil || Check(c, v.now()) != nil {
		if err := v.Clear(ctx, userID); err != nil {
			v.logger.Warn("clear stale coupon", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return nil, nil
	}
	return c, nil
}

// Clear forgets the applied coupon.
func (v *Validator) Clear(ctx context.Context, userID uuid.UUID) error {
	return v.sessions.Del(ctx, sessionKey(userID))
}
