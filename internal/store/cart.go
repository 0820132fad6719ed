package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

// ListCartCourses returns the user's course lines joined with the live course row.
func (r *queries) ListCartCourses(ctx context.Context, userID uuid.UUID) ([]*models.CartCourseItem, error) {
	q := `SELECT ci.id, ci.user_id, ci.course_id, ci.quantity, ci.added_at, ` + courseColumns + `
		FROM cart_courses ci JOIN courses c ON c.id = ci.course_id
		WHERE ci.user_id = $1 ORDER BY ci.added_at, ci.id`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CartCourseItem
	for rows.Next() {
		var it models.CartCourseItem
		var c models.Course
		err := rows.Scan(&it.ID, &it.UserID, &it.CourseID, &it.Quantity, &it.AddedAt,
			&c.ID, &c.InstructorID, &c.CategoryID, &c.Title, &c.Description, &c.Difficulty, &c.DurationHours,
			&c.Price, &c.DiscountedPrice, &c.Status, &c.TotalSlots, &c.AvailableSlots, &c.PublishedAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		it.Course = &c
		list = append(list, &it)
	}
	return list, rows.Err()
}

// ListCartCertifications returns the user's certification lines joined with the certification row.
func (r *queries) ListCartCertifications(ctx context.Context, userID uuid.UUID) ([]*models.CartCertificationItem, error) {
	const q = `SELECT ci.id, ci.user_id, ci.certification_id, ci.quantity, ci.added_at,
		c.id, c.slug, c.name, c.description, c.price, c.is_active, c.display_order, c.created_at
		FROM cart_certifications ci JOIN certifications c ON c.id = ci.certification_id
		WHERE ci.user_id = $1 ORDER BY ci.added_at, ci.id`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CartCertificationItem
	for rows.Next() {
		var it models.CartCertificationItem
		var c models.Certification
		err := rows.Scan(&it.ID, &it.UserID, &it.CertificationID, &it.Quantity, &it.AddedAt,
			&c.ID, &c.Slug, &c.Name, &c.Description, &c.Price, &c.IsActive, &c.DisplayOrder, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		it.Certification = &c
		list = append(list, &it)
	}
	return list, rows.Err()
}

// AddCartCourse creates the line or increments its quantity.
func (r *queries) AddCartCourse(ctx context.Context, userID, courseID uuid.UUID, qty int) (*models.CartCourseItem, error) {
	const q = `INSERT INTO cart_courses (user_id, course_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_id) DO UPDATE SET quantity = cart_courses.quantity + EXCLUDED.quantity
		RETURNING id, user_id, course_id, quantity, added_at`
	var it models.CartCourseItem
	if err := r.db.QueryRow(ctx, q, userID, courseID, qty).Scan(&it.ID, &it.UserID, &it.CourseID, &it.Quantity, &it.AddedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// AddCartCertification creates the line or increments its quantity.
func (r *queries) AddCartCertification(ctx context.Context, userID, certificationID uuid.UUID, qty int) (*models.CartCertificationItem, error) {
	const q = `INSERT INTO cart_certifications (user_id, certification_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, certification_id) DO UPDATE SET quantity = cart_certifications.quantity + EXCLUDED.quantity
		RETURNING id, user_id, certification_id, quantity, added_at`
	var it models.CartCertificationItem
	if err := r.db.QueryRow(ctx, q, userID, certificationID, qty).Scan(&it.ID, &it.UserID, &it.CertificationID, &it.Quantity, &it.AddedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

// RemoveCartCourse deletes the line and reports whether one existed.
func (r *queries) RemoveCartCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_courses WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveCartCertification deletes the line and reports whether one existed.
func (r *queries) RemoveCartCertification(ctx context.Context, userID, certificationID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_certifications WHERE user_id = $1 AND certification_id = $2`, userID, certificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClearCart removes every line of both kinds.
func (r *queries) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_courses WHERE user_id = $1`, userID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM cart_certifications WHERE user_id = $1`, userID)
	return err
}

const couponColumns = `id, code, discount_type, discount_value, max_uses, used_count, valid_from, valid_until, created_at`

func scanCoupon(s scanner) (*models.Coupon, error) {
	var c models.Coupon
	err := s.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MaxUses, &c.UsedCount, &c.ValidFrom, &c.ValidUntil, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCoupon returns a coupon by ID.
func (r *queries) GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetCouponByCode looks a coupon up case-insensitively.
func (r *queries) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := scanCoupon(r.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE UPPER(code) = UPPER($1)`, code))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// IncrementCouponUsage bumps used_count only while it is below max_uses.
func (r *queries) IncrementCouponUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1 AND used_count < max_uses`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
