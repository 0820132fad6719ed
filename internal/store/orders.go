package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

const orderColumns = `id, number, user_id, status, subtotal, discount, total, coupon_id, created_at, updated_at`

func scanOrder(s scanner) (*models.Order, error) {
	var o models.Order
	err := s.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.Total, &o.CouponID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderNumberExists reports whether an order already uses number.
func (r *queries) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE number = $1)`, number)
}

// CreateOrder inserts the order and its line item snapshots.
func (r *queries) CreateOrder(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO orders (number, user_id, status, subtotal, discount, total, coupon_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, updated_at`
	if err := r.db.QueryRow(ctx, q, o.Number, o.UserID, o.Status, o.Subtotal, o.Discount, o.Total, o.CouponID, o.CreatedAt).
		Scan(&o.ID, &o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	const cq = `INSERT INTO order_course_items (order_id, course_id, title, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for _, it := range o.CourseItems {
		it.OrderID = o.ID
		if err := r.db.QueryRow(ctx, cq, o.ID, it.CourseID, it.Title, it.UnitPrice, it.Quantity).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order course item: %w", err)
		}
	}
	const tq = `INSERT INTO order_certification_items (order_id, certification_id, name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	for _, it := range o.CertificationItems {
		it.OrderID = o.ID
		if err := r.db.QueryRow(ctx, tq, o.ID, it.CertificationID, it.Name, it.UnitPrice, it.Quantity).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order certification item: %w", err)
		}
	}
	return nil
}

// SetOrderItemSeats records how many slots a course line consumed.
func (r *queries) SetOrderItemSeats(ctx context.Context, itemID uuid.UUID, seats int) error {
	tag, err := r.db.Exec(ctx, `UPDATE order_course_items SET seats_taken = $2 WHERE id = $1`, itemID, seats)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *queries) loadOrderItems(ctx context.Context, o *models.Order) error {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, course_id, title, unit_price, quantity, seats_taken
		FROM order_course_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var it models.OrderCourseItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.CourseID, &it.Title, &it.UnitPrice, &it.Quantity, &it.SeatsTaken); err != nil {
			rows.Close()
			return err
		}
		o.CourseItems = append(o.CourseItems, &it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	trows, err := r.db.Query(ctx, `SELECT id, order_id, certification_id, name, unit_price, quantity
		FROM order_certification_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer trows.Close()
	for trows.Next() {
		var it models.OrderCertificationItem
		if err := trows.Scan(&it.ID, &it.OrderID, &it.CertificationID, &it.Name, &it.UnitPrice, &it.Quantity); err != nil {
			return err
		}
		o.CertificationItems = append(o.CertificationItems, &it)
	}
	return trows.Err()
}

func (r *queries) getOrder(ctx context.Context, q string, args ...any) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadOrderItems(ctx, o); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return o, nil
}

// GetOrderByNumber returns an order with its line items.
func (r *queries) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1`, number)
}

// LockOrderByNumber re-reads the order with FOR UPDATE; only meaningful inside InTx.
func (r *queries) LockOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = $1 FOR UPDATE`, number)
}

func (r *queries) listOrders(ctx context.Context, q string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var list []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range list {
		if err := r.loadOrderItems(ctx, o); err != nil {
			return nil, fmt.Errorf("load order items: %w", err)
		}
	}
	return list, nil
}

// ListOrdersByUser returns the user's orders, newest first.
func (r *queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListRecentOrders returns the newest orders across all users.
func (r *queries) ListRecentOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
}

// UpdateOrderStatus flips status only when it currently equals from.
func (r *queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetPaymentByOrder returns the order's payment.
func (r *queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	const q = `SELECT id, order_id, amount, method, status, transaction_ref, created_at FROM payments WHERE order_id = $1`
	var p models.Payment
	err := r.db.QueryRow(ctx, q, orderID).Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.TransactionRef, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CreatePayment inserts a payment. The order_id unique constraint rejects a second one.
func (r *queries) CreatePayment(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (order_id, amount, method, status, transaction_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRow(ctx, q, p.OrderID, p.Amount, p.Method, p.Status, p.TransactionRef, p.CreatedAt).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// InvoiceNumberExists reports whether an invoice already uses number.
func (r *queries) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE number = $1)`, number)
}

// CreateInvoice inserts an invoice.
func (r *queries) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	const q = `INSERT INTO invoices (order_id, number, subtotal, discount, total, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRow(ctx, q, inv.OrderID, inv.Number, inv.Subtotal, inv.Discount, inv.Total, inv.IssuedAt).Scan(&inv.ID); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetInvoiceByOrder returns the order's invoice.
func (r *queries) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	const q = `SELECT id, order_id, number, subtotal, discount, total, issued_at FROM invoices WHERE order_id = $1`
	var inv models.Invoice
	err := r.db.QueryRow(ctx, q, orderID).Scan(&inv.ID, &inv.OrderID, &inv.Number, &inv.Subtotal, &inv.Discount, &inv.Total, &inv.IssuedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}
