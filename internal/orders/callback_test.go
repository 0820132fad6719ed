package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/payments"
)

func (f *fixture) pending(t *testing.T) *Checkout {
	t.Helper()
	course := f.course(t, "100", 10, 10)
	f.addToCart(t, f.user, course.ID, 1)
	co, err := f.svc.StartCheckout(context.Background(), f.user, nil)
	require.NoError(t, err)
	return co
}

func TestHandleCallbackSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	co := f.pending(t)

	out, err := f.svc.HandleCallback(ctx, f.user, ResultSuccess, co.PaymentToken)
	require.NoError(t, err)
	assert.False(t, out.AlreadyProcessed)
	assert.Equal(t, models.OrderStatusConfirmed, out.Order.Status)

	payment, err := f.m.GetPaymentByOrder(ctx, co.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentMethodSimulatedCard, payment.Method)

	out, err = f.svc.HandleCallback(ctx, f.user, ResultSuccess, co.PaymentToken)
	require.NoError(t, err)
	assert.True(t, out.AlreadyProcessed)
	assert.Equal(t, models.OrderStatusConfirmed, out.Order.Status)
	assert.Equal(t, 1, f.m.PaymentCount())
	assert.Len(t, f.notifier.orders, 1)
}

func TestHandleCallbackFailAndCancel(t *testing.T) {
	for _, result := range []string{ResultFail, ResultCancel} {
		t.Run(result, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			co := f.pending(t)

			out, err := f.svc.HandleCallback(ctx, f.user, result, co.PaymentToken)
			require.NoError(t, err)
			assert.Equal(t, models.OrderStatusCancelled, out.Order.Status)

			out, err = f.svc.HandleCallback(ctx, f.user, ResultSuccess, co.PaymentToken)
			require.NoError(t, err)
			assert.True(t, out.AlreadyProcessed, "a late success does not resurrect the order")
			assert.Equal(t, models.OrderStatusCancelled, out.Order.Status)
			assert.Zero(t, f.m.EnrollmentCount())
		})
	}
}

func TestHandleCallbackRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown result", func(t *testing.T) {
		f := newFixture(t)
		co := f.pending(t)
		_, err := f.svc.HandleCallback(ctx, f.user, "refund", co.PaymentToken)
		assert.ErrorIs(t, err, ErrInvalidResult)
		assert.Equal(t, models.OrderStatusPending, f.status(t, co.Order.Number))
	})

	t.Run("expired token", func(t *testing.T) {
		f := newFixture(t)
		co := f.pending(t)
		*f.clock = f.clock.Add(31 * time.Minute)

		_, err := f.svc.HandleCallback(ctx, f.user, ResultSuccess, co.PaymentToken)
		assert.ErrorIs(t, err, payments.ErrInvalidOrExpiredToken)
		assert.Equal(t, models.OrderStatusPending, f.status(t, co.Order.Number))

		list, err := f.svc.List(ctx, f.user)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsPayable())
	})

	t.Run("forged token", func(t *testing.T) {
		f := newFixture(t)
		co := f.pending(t)
		forger := payments.NewTokenService("not-the-secret", 0, nil)
		forged, _, err := forger.Mint(co.Order.Number, f.user)
		require.NoError(t, err)

		_, err = f.svc.HandleCallback(ctx, f.user, ResultSuccess, forged)
		assert.ErrorIs(t, err, payments.ErrInvalidOrExpiredToken)
		assert.Equal(t, models.OrderStatusPending, f.status(t, co.Order.Number))
	})

	t.Run("token of another user", func(t *testing.T) {
		f := newFixture(t)
		co := f.pending(t)
		_, err := f.svc.HandleCallback(ctx, uuid.New(), ResultSuccess, co.PaymentToken)
		assert.ErrorIs(t, err, ErrSessionMismatch)
		assert.Equal(t, models.OrderStatusPending, f.status(t, co.Order.Number))
	})

	t.Run("order of another user", func(t *testing.T) {
		f := newFixture(t)
		co := f.pending(t)
		intruder := uuid.New()
		token, _, err := f.tokens.Mint(co.Order.Number, intruder)
		require.NoError(t, err)

		_, err = f.svc.HandleCallback(ctx, intruder, ResultSuccess, token)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, models.OrderStatusPending, f.status(t, co.Order.Number))
	})
}

func TestGatewaySummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	co := f.pending(t)

	g, err := f.svc.GatewaySummary(ctx, f.user, co.PaymentToken)
	require.NoError(t, err)
	assert.Equal(t, co.Order.Number, g.Order.Number)

	_, err = f.svc.GatewaySummary(ctx, f.user, "")
	assert.ErrorIs(t, err, payments.ErrInvalidOrExpiredToken)

	_, err = f.svc.HandleCallback(ctx, f.user, ResultSuccess, co.PaymentToken)
	require.NoError(t, err)
	_, err = f.svc.GatewaySummary(ctx, f.user, co.PaymentToken)
	assert.ErrorIs(t, err, ErrNotPending)
}
