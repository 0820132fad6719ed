package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillforge/marketplace/internal/models"
)

const enrollmentColumns = `id, user_id, course_id, order_id, status, enrolled_at, completed_at`

func scanEnrollment(s scanner) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := s.Scan(&e.ID, &e.UserID, &e.CourseID, &e.OrderID, &e.Status, &e.EnrolledAt, &e.CompletedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEnrollment returns the (user, course) enrollment.
func (r *queries) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	e, err := scanEnrollment(r.db.QueryRow(ctx, q, userID, courseID))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// EnsureEnrollment inserts an ACTIVE enrollment or reactivates a CANCELLED one.
// The bool is true when access was granted by this call.
func (r *queries) EnsureEnrollment(ctx context.Context, userID, courseID, orderID uuid.UUID, at time.Time) (*models.Enrollment, bool, error) {
	const q = `INSERT INTO enrollments (user_id, course_id, order_id, status, enrolled_at)
		VALUES ($1, $2, $3, 'ACTIVE', $4)
		ON CONFLICT (user_id, course_id) DO UPDATE
			SET status = 'ACTIVE', order_id = EXCLUDED.order_id, enrolled_at = EXCLUDED.enrolled_at, completed_at = NULL
			WHERE enrollments.status = 'CANCELLED'
		RETURNING ` + enrollmentColumns
	e, err := scanEnrollment(r.db.QueryRow(ctx, q, userID, courseID, orderID, at))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	existing, err := r.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// CompleteEnrollment marks an enrollment COMPLETED unless it already is.
func (r *queries) CompleteEnrollment(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE enrollments SET status = 'COMPLETED', completed_at = $2 WHERE id = $1 AND status = 'ACTIVE'`, id, at)
	return err
}

// CancelEnrollmentsByOrder cancels every enrollment granted by the order.
func (r *queries) CancelEnrollmentsByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `UPDATE enrollments SET status = 'CANCELLED' WHERE order_id = $1 AND status <> 'CANCELLED'`, orderID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListEnrollmentsByUser returns the user's enrollments, newest first.
func (r *queries) ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Enrollment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// CountEnrollmentsByCourse counts non-cancelled enrollments.
func (r *queries) CountEnrollmentsByCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status <> 'CANCELLED'`, courseID)
}

// EnsureCertificationAccess grants access once; the bool reports a new grant.
func (r *queries) EnsureCertificationAccess(ctx context.Context, userID, certificationID, orderID uuid.UUID, at time.Time) (bool, error) {
	const q = `INSERT INTO certification_access (user_id, certification_id, order_id, granted_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (user_id, certification_id) DO NOTHING`
	tag, err := r.db.Exec(ctx, q, userID, certificationID, orderID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// HasCertificationAccess reports whether the user bought the certification.
func (r *queries) HasCertificationAccess(ctx context.Context, userID, certificationID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM certification_access WHERE user_id = $1 AND certification_id = $2)`, userID, certificationID)
}
