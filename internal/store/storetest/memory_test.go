package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	course := m.AddCourse(models.Course{Title: "Go", Status: models.CourseStatusPublished, TotalSlots: 10, AvailableSlots: 10})
	user := m.AddUser(models.User{Email: "a@example.com"})

	boom := errors.New("boom")
	err := m.InTx(ctx, func(q store.Querier) error {
		_, err := q.AdjustCourseSlots(ctx, course.ID, -3)
		require.NoError(t, err)
		_, _, err = q.EnsureEnrollment(ctx, user.ID, course.ID, uuid.New(), time.Now())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.GetCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableSlots)
	assert.Zero(t, m.EnrollmentCount())
}

func TestAdjustCourseSlotsClamps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	course := m.AddCourse(models.Course{TotalSlots: 2, AvailableSlots: 1})

	applied, err := m.AdjustCourseSlots(ctx, course.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, -1, applied)
	got, _ := m.GetCourse(ctx, course.ID)
	assert.Equal(t, 0, got.AvailableSlots)

	applied, err = m.AdjustCourseSlots(ctx, course.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	got, _ = m.GetCourse(ctx, course.ID)
	assert.Equal(t, 2, got.AvailableSlots)

	_, err = m.AdjustCourseSlots(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIncrementCouponUsageRespectsCap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	c := m.AddCoupon(models.Coupon{Code: "ONCE", MaxUses: 1})

	ok, err := m.IncrementCouponUsage(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IncrementCouponUsage(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureEnrollmentReactivatesCancelled(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	userID, courseID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	e, granted, err := m.EnsureEnrollment(ctx, userID, courseID, first, time.Now())
	require.NoError(t, err)
	assert.True(t, granted)

	_, granted, err = m.EnsureEnrollment(ctx, userID, courseID, second, time.Now())
	require.NoError(t, err)
	assert.False(t, granted, "active enrollment is reused")

	n, err := m.CancelEnrollmentsByOrder(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	again, granted, err := m.EnsureEnrollment(ctx, userID, courseID, second, time.Now())
	require.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, e.ID, again.ID)
	assert.Equal(t, models.EnrollmentStatusActive, again.Status)
	assert.Equal(t, second, *again.OrderID)
	assert.Equal(t, 1, m.EnrollmentCount())
}

func TestFailNextFiresOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailNext("ClearCart", boom)

	assert.ErrorIs(t, m.ClearCart(ctx, uuid.New()), boom)
	assert.NoError(t, m.ClearCart(ctx, uuid.New()))
}

func TestSetOrderItemSeatsRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	course := m.AddCourse(models.Course{TotalSlots: 5, AvailableSlots: 5})
	order := &models.Order{Number: "ORD-1", UserID: uuid.New(), Status: models.OrderStatusPending,
		CourseItems: []*models.OrderCourseItem{{CourseID: course.ID, Quantity: 2}}}
	require.NoError(t, m.CreateOrder(ctx, order))
	itemID := order.CourseItems[0].ID

	err := m.InTx(ctx, func(q store.Querier) error {
		require.NoError(t, q.SetOrderItemSeats(ctx, itemID, 2))
		return errors.New("boom")
	})
	require.Error(t, err)
	got, err := m.GetOrderByNumber(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Zero(t, got.CourseItems[0].SeatsTaken)

	require.NoError(t, m.SetOrderItemSeats(ctx, itemID, 2))
	got, _ = m.GetOrderByNumber(ctx, "ORD-1")
	assert.Equal(t, 2, got.CourseItems[0].SeatsTaken)
	assert.ErrorIs(t, m.SetOrderItemSeats(ctx, uuid.New(), 1), store.ErrNotFound)
}
