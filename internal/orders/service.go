// Package orders turns a cart into a pending order and drives it to CONFIRMED or CANCELLED.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/cart"
	"github.com/skillforge/marketplace/internal/coupons"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/payments"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	ErrEmptyCart       = errors.New("your cart is empty")
	ErrItemUnavailable = errors.New("this course is not available")
	ErrNotCancellable  = errors.New("only confirmed orders can be cancelled")
	ErrNotPending      = errors.New("this order can no longer be paid")
	ErrSessionMismatch = errors.New("payment link belongs to another account")
	ErrInvalidResult   = errors.New("invalid payment result")
	ErrNotFound        = errors.New("order not found")
)

// Notifier is told about confirmed orders after the transaction commits.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
}

// Checkout is a freshly created or resumed pending order with its payment link token.
type Checkout struct {
	Order          *models.Order `json:"order"`
	PaymentToken   string        `json:"payment_token"`
	TokenExpiresAt time.Time     `json:"token_expires_at"`
}

// Outcome is the result of a state transition attempt. AlreadyProcessed is set when
// the order had already left PENDING and nothing was changed.
type Outcome struct {
	Order            *models.Order `json:"order"`
	AlreadyProcessed bool          `json:"already_processed"`
}

// Preview is the checkout page: cart, applied coupon and computed totals.
type Preview struct {
	Cart     *cart.Cart      `json:"cart"`
	Coupon   *models.Coupon  `json:"coupon,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Service implements the order lifecycle on top of a transactional store.
type Service struct {
	store    store.Store
	tokens   *payments.TokenService
	notifier Notifier
	now      func() time.Time
	digits   func() int
	logger   *zap.Logger
}

// NewService creates an order service. notifier may be nil.
func NewService(st store.Store, tokens *payments.TokenService, notifier Notifier, now func() time.Time, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, tokens: tokens, notifier: notifier, now: now, digits: randomDigits, logger: logger}
}

// Preview prices the user's cart with the given coupon without writing anything.
func (s *Service) Preview(ctx context.Context, userID uuid.UUID, coupon *models.Coupon) (*Preview, error) {
	crt, err := cart.Load(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	discount := coupons.Discount(coupon, crt.Subtotal)
	return &Preview{
		Cart:     crt,
		Coupon:   coupon,
		Subtotal: crt.Subtotal,
		Discount: discount,
		Total:    crt.Subtotal.Sub(discount),
	}, nil
}

// StartCheckout creates a PENDING order from the cart and mints its payment token.
// Slots, enrollments and the cart itself are left alone until payment is confirmed.
func (s *Service) StartCheckout(ctx context.Context, userID uuid.UUID, coupon *models.Coupon) (*Checkout, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(q store.Querier) error {
		var err error
		order, err = s.createPending(ctx, q, userID, coupon)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order created",
		zap.String("order_number", order.Number),
		zap.String("user_id", userID.String()),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return s.checkout(order)
}

// CheckoutImmediate creates and confirms the order in one transaction. It is used
// when the payment gateway is disabled.
func (s *Service) CheckoutImmediate(ctx context.Context, userID uuid.UUID, coupon *models.Coupon) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(q store.Querier) error {
		var err error
		order, err = s.createPending(ctx, q, userID, coupon)
		if err != nil {
			return err
		}
		_, err = s.confirm(ctx, q, order, models.PaymentMethodSimulated)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order confirmed without gateway", zap.String("order_number", order.Number), zap.String("user_id", userID.String()))
	s.notifyConfirmed(ctx, order)
	return order, nil
}

// ContinuePayment mints a fresh token for a PENDING order owned by userID.
func (s *Service) ContinuePayment(ctx context.Context, userID uuid.UUID, number string) (*Checkout, error) {
	order, err := s.owned(ctx, s.store, userID, number)
	if err != nil {
		return nil, err
	}
	if !order.IsPayable() {
		return nil, ErrNotPending
	}
	return s.checkout(order)
}

// ConfirmPayment flips a PENDING order to CONFIRMED and applies every side effect
// atomically. Orders that are no longer PENDING are reported as already processed.
func (s *Service) ConfirmPayment(ctx context.Context, number, method string) (*Outcome, error) {
	out, err := s.transition(ctx, number, uuid.Nil, func(q store.Querier, o *models.Order) (bool, error) {
		return s.confirm(ctx, q, o, method)
	})
	if err != nil {
		return nil, err
	}
	if !out.AlreadyProcessed {
		s.notifyConfirmed(ctx, out.Order)
	}
	return out, nil
}

// FailPayment flips a PENDING order to CANCELLED and records a FAILED payment when
// none exists. Orders that are no longer PENDING are left untouched.
func (s *Service) FailPayment(ctx context.Context, number string) (*Outcome, error) {
	return s.transition(ctx, number, uuid.Nil, func(q store.Querier, o *models.Order) (bool, error) {
		return s.fail(ctx, q, o)
	})
}

// CancelConfirmed cancels any user's CONFIRMED order, gives the seats back and cancels
// its enrollments.
func (s *Service) CancelConfirmed(ctx context.Context, number string) (*models.Order, error) {
	return s.cancel(ctx, number, uuid.Nil)
}

// CancelOwned is CancelConfirmed restricted to the caller's own orders. Other users'
// orders report ErrNotFound.
func (s *Service) CancelOwned(ctx context.Context, userID uuid.UUID, number string) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrNotFound
	}
	return s.cancel(ctx, number, userID)
}

func (s *Service) cancel(ctx context.Context, number string, owner uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(q store.Querier) error {
		o, err := q.LockOrderByNumber(ctx, number)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if owner != uuid.Nil && o.UserID != owner {
			return ErrNotFound
		}
		at := s.now()
		ok, err := q.UpdateOrderStatus(ctx, o.ID, models.OrderStatusConfirmed, models.OrderStatusCancelled, at)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return ErrNotCancellable
		}
		for _, it := range o.CourseItems {
			if it.SeatsTaken == 0 {
				continue
			}
			if _, err := q.AdjustCourseSlots(ctx, it.CourseID, it.SeatsTaken); err != nil {
				return fmt.Errorf("restore slots: %w", err)
			}
		}
		if _, err := q.CancelEnrollmentsByOrder(ctx, o.ID); err != nil {
			return fmt.Errorf("cancel enrollments: %w", err)
		}
		o.Status = models.OrderStatusCancelled
		o.UpdatedAt = at
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("confirmed order cancelled", zap.String("order_number", number), zap.Bool("by_owner", owner != uuid.Nil))
	return order, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	list, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return list, nil
}

// Detail is an order with its payment and invoice, when they exist.
type Detail struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment,omitempty"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
	Payable bool            `json:"payable"`
}

// Get returns one of the user's orders with payment and invoice.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, number string) (*Detail, error) {
	order, err := s.owned(ctx, s.store, userID, number)
	if err != nil {
		return nil, err
	}
	d := &Detail{Order: order, Payable: order.IsPayable()}
	if d.Payment, err = s.store.GetPaymentByOrder(ctx, order.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if d.Invoice, err = s.store.GetInvoiceByOrder(ctx, order.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return d, nil
}

func (s *Service) checkout(order *models.Order) (*Checkout, error) {
	token, expires, err := s.tokens.Mint(order.Number, order.UserID)
	if err != nil {
		return nil, err
	}
	return &Checkout{Order: order, PaymentToken: token, TokenExpiresAt: expires}, nil
}

func (s *Service) owned(ctx context.Context, q store.Querier, userID uuid.UUID, number string) (*models.Order, error) {
	order, err := q.GetOrderByNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	return order, nil
}

// transition locks the order and runs apply only while it is still PENDING. A non-nil
// owner must match the order's user.
func (s *Service) transition(ctx context.Context, number string, owner uuid.UUID, apply func(q store.Querier, o *models.Order) (bool, error)) (*Outcome, error) {
	out := &Outcome{}
	err := s.store.InTx(ctx, func(q store.Querier) error {
		o, err := q.LockOrderByNumber(ctx, number)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if owner != uuid.Nil && o.UserID != owner {
			return ErrNotFound
		}
		out.Order = o
		if !o.IsPayable() {
			out.AlreadyProcessed = true
			return nil
		}
		applied, err := apply(q, o)
		if err != nil {
			return err
		}
		out.AlreadyProcessed = !applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) createPending(ctx context.Context, q store.Querier, userID uuid.UUID, coupon *models.Coupon) (*models.Order, error) {
	crt, err := cart.Load(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if crt.IsEmpty() {
		return nil, ErrEmptyCart
	}
	now := s.now()
	order := &models.Order{
		UserID:    userID,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
	}
	for _, it := range crt.Courses {
		if it.Course == nil || !it.Course.IsPurchasable() || it.Quantity > it.Course.AvailableSlots {
			return nil, ErrItemUnavailable
		}
		order.CourseItems = append(order.CourseItems, &models.OrderCourseItem{
			CourseID:  it.CourseID,
			Title:     it.Course.Title,
			UnitPrice: it.Course.FinalPrice(),
			Quantity:  it.Quantity,
		})
	}
	for _, it := range crt.Certifications {
		if it.Certification == nil || !it.Certification.IsActive {
			return nil, ErrItemUnavailable
		}
		order.CertificationItems = append(order.CertificationItems, &models.OrderCertificationItem{
			CertificationID: it.CertificationID,
			Name:            it.Certification.Name,
			UnitPrice:       it.Certification.Price,
			Quantity:        it.Quantity,
		})
	}

	order.Subtotal = crt.Subtotal
	order.Discount = decimal.Zero
	if coupon != nil {
		current, err := q.GetCoupon(ctx, coupon.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, coupons.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get coupon: %w", err)
		}
		if err := coupons.Check(current, now); err != nil {
			return nil, err
		}
		ok, err := q.IncrementCouponUsage(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("increment coupon usage: %w", err)
		}
		if !ok {
			return nil, coupons.ErrExhausted
		}
		order.Discount = coupons.Discount(current, order.Subtotal)
		order.CouponID = &current.ID
	}
	order.Total = order.Subtotal.Sub(order.Discount)

	if order.Number, err = s.uniqueNumber(ctx, orderPrefix, q.OrderNumberExists); err != nil {
		return nil, err
	}
	if err := q.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// confirm applies the PENDING to CONFIRMED transition inside q's transaction.
func (s *Service) confirm(ctx context.Context, q store.Querier, o *models.Order, method string) (bool, error) {
	at := s.now()
	ok, err := q.UpdateOrderStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusConfirmed, at)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	if !ok {
		return false, nil
	}
	if method == "" {
		method = models.PaymentMethodSimulated
	}
	payment := &models.Payment{
		OrderID:        o.ID,
		Amount:         o.Total,
		Method:         method,
		Status:         models.PaymentStatusCompleted,
		TransactionRef: "SIM-" + o.Number,
		CreatedAt:      at,
	}
	if err := q.CreatePayment(ctx, payment); err != nil {
		return false, fmt.Errorf("create payment: %w", err)
	}
	invoice := &models.Invoice{
		OrderID:  o.ID,
		Subtotal: o.Subtotal,
		Discount: o.Discount,
		Total:    o.Total,
		IssuedAt: at,
	}
	if invoice.Number, err = s.uniqueNumber(ctx, invoicePrefix, q.InvoiceNumberExists); err != nil {
		return false, err
	}
	if err := q.CreateInvoice(ctx, invoice); err != nil {
		return false, fmt.Errorf("create invoice: %w", err)
	}
	for _, it := range o.CourseItems {
		if _, _, err := q.EnsureEnrollment(ctx, o.UserID, it.CourseID, o.ID, at); err != nil {
			return false, fmt.Errorf("enroll: %w", err)
		}
		applied, err := q.AdjustCourseSlots(ctx, it.CourseID, -it.Quantity)
		if err != nil {
			return false, fmt.Errorf("decrement slots: %w", err)
		}
		it.SeatsTaken = max(-applied, 0)
		if it.SeatsTaken != it.Quantity {
			// Another order took the remaining seats after this one was created.
			s.logger.Warn("course oversubscribed",
				zap.String("order_number", o.Number),
				zap.String("course_id", it.CourseID.String()),
				zap.Int("quantity", it.Quantity),
				zap.Int("seats_taken", it.SeatsTaken),
			)
		}
		if err := q.SetOrderItemSeats(ctx, it.ID, it.SeatsTaken); err != nil {
			return false, fmt.Errorf("record seats: %w", err)
		}
	}
	for _, it := range o.CertificationItems {
		if _, err := q.EnsureCertificationAccess(ctx, o.UserID, it.CertificationID, o.ID, at); err != nil {
			return false, fmt.Errorf("grant certification access: %w", err)
		}
	}
	if err := q.ClearCart(ctx, o.UserID); err != nil {
		return false, fmt.Errorf("clear cart: %w", err)
	}
	o.Status = models.OrderStatusConfirmed
	o.UpdatedAt = at
	return true, nil
}

func (s *Service) fail(ctx context.Context, q store.Querier, o *models.Order) (bool, error) {
	at := s.now()
	ok, err := q.UpdateOrderStatus(ctx, o.ID, models.OrderStatusPending, models.OrderStatusCancelled, at)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	if !ok {
		return false, nil
	}
	_, err = q.GetPaymentByOrder(ctx, o.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		payment := &models.Payment{
			OrderID:        o.ID,
			Amount:         o.Total,
			Method:         models.PaymentMethodSimulatedCard,
			Status:         models.PaymentStatusFailed,
			TransactionRef: "SIM-" + o.Number,
			CreatedAt:      at,
		}
		if err := q.CreatePayment(ctx, payment); err != nil {
			return false, fmt.Errorf("create failed payment: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("get payment: %w", err)
	}
	o.Status = models.OrderStatusCancelled
	o.UpdatedAt = at
	s.logger.Info("payment failed", zap.String("order_number", o.Number))
	return true, nil
}

func (s *Service) notifyConfirmed(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	s.notifier.OrderConfirmed(ctx, order)
}
