package coupons

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

type memSession struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemSession() *memSession { return &memSession{data: make(map[string]string)} }

func (s *memSession) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memSession) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memSession) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func coupon(code string, maxUses, used int) models.Coupon {
	return models.Coupon{
		Code:          code,
		DiscountType:  models.CouponDiscountPercent,
		DiscountValue: decimal.NewFromInt(10),
		MaxUses:       maxUses,
		UsedCount:     used,
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    now.Add(24 * time.Hour),
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	m.AddCoupon(coupon("SPRING10", 5, 0))
	m.AddCoupon(coupon("FULL", 2, 2))
	late := coupon("LATE", 5, 0)
	late.ValidUntil = now.Add(-time.Minute)
	m.AddCoupon(late)
	early := coupon("EARLY", 5, 0)
	early.ValidFrom = now.Add(time.Minute)
	m.AddCoupon(early)

	v := NewValidator(m, newMemSession(), time.Hour, func() time.Time { return now }, nil)
	user := uuid.New()

	tests := []struct {
		name string
		code string
		err  error
	}{
		{"valid lower case and padded", "  spring10 ", nil},
		{"unknown", "NOPE", ErrNotFound},
		{"empty", "   ", ErrNotFound},
		{"cap reached", "FULL", ErrExhausted},
		{"past window", "LATE", ErrExpired},
		{"before window", "EARLY", ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := v.Apply(ctx, user, tt.code)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SPRING10", c.Code)
		})
	}
}

func TestGetAppliedSelfHeals(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	stored := m.AddCoupon(coupon("ONCE", 1, 0))
	sessions := newMemSession()
	clock := now
	v := NewValidator(m, sessions, time.Hour, func() time.Time { return clock }, nil)
	user := uuid.New()

	_, err := v.Apply(ctx, user, "ONCE")
	require.NoError(t, err)

	got, err := v.GetApplied(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored.ID, got.ID)

	t.Run("expires mid session", func(t *testing.T) {
		clock = now.Add(48 * time.Hour)
		got, err := v.GetApplied(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, sessions.data, "stale code is cleared")
	})

	t.Run("exhausted by another checkout", func(t *testing.T) {
		clock = now
		_, err := v.Apply(ctx, user, "ONCE")
		require.NoError(t, err)
		ok, err := m.IncrementCouponUsage(ctx, stored.ID)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := v.GetApplied(ctx, user)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, sessions.data)
	})
}

func TestGetAppliedNothingStored(t *testing.T) {
	v := NewValidator(storetest.NewMemory(), newMemSession(), time.Hour, nil, nil)
	got, err := v.GetApplied(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDiscount(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name     string
		kind     string
		value    string
		subtotal string
		want     string
	}{
		{"percent", models.CouponDiscountPercent, "10", "100", "10"},
		{"percent rounds to cents", models.CouponDiscountPercent, "15", "19.99", "3"},
		{"percent half even", models.CouponDiscountPercent, "50", "0.05", "0.02"},
		{"percent above hundred capped", models.CouponDiscountPercent, "150", "40", "40"},
		{"fixed", models.CouponDiscountFixed, "25", "100", "25"},
		{"fixed larger than subtotal", models.CouponDiscountFixed, "250", "100", "100"},
		{"zero subtotal", models.CouponDiscountFixed, "25", "0", "0"},
		{"unknown type", "BOGUS", "25", "100", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Coupon{DiscountType: tt.kind, DiscountValue: d(tt.value)}
			got := Discount(c, d(tt.subtotal))
			assert.True(t, d(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
	assert.True(t, Discount(nil, d("10")).IsZero())
}
