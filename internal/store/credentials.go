package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

const certificateColumns = `id, user_id, course_id, serial, verification_code, issued_at`

func scanCertificate(s scanner) (*models.Certificate, error) {
	var c models.Certificate
	if err := s.Scan(&c.ID, &c.UserID, &c.CourseID, &c.Serial, &c.VerificationCode, &c.IssuedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCertificate returns the certificate for (user, course).
func (r *queries) GetCertificate(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error) {
	q := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND course_id = $2`
	c, err := scanCertificate(r.db.QueryRow(ctx, q, userID, courseID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// GetCertificateByCode returns the certificate with the given verification code.
func (r *queries) GetCertificateByCode(ctx context.Context, code string) (*models.Certificate, error) {
	c, err := scanCertificate(r.db.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE verification_code = $1`, code))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// CertificateSerialExists reports whether serial is taken.
func (r *queries) CertificateSerialExists(ctx context.Context, serial string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM certificates WHERE serial = $1)`, serial)
}

// CreateCertificate inserts a certificate.
func (r *queries) CreateCertificate(ctx context.Context, c *models.Certificate) error {
	const q = `INSERT INTO certificates (user_id, course_id, serial, verification_code, issued_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRow(ctx, q, c.UserID, c.CourseID, c.Serial, c.VerificationCode, c.IssuedAt).Scan(&c.ID); err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// ListCertificatesByUser returns the user's certificates, newest first.
func (r *queries) ListCertificatesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Certificate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

const diplomaColumns = `id, user_id, certification_id, verification_code, score, issued_at, updated_at`

func scanDiploma(s scanner) (*models.Diploma, error) {
	var d models.Diploma
	if err := s.Scan(&d.ID, &d.UserID, &d.CertificationID, &d.VerificationCode, &d.Score, &d.IssuedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDiploma returns the diploma for (user, certification).
func (r *queries) GetDiploma(ctx context.Context, userID, certificationID uuid.UUID) (*models.Diploma, error) {
	q := `SELECT ` + diplomaColumns + ` FROM diplomas WHERE user_id = $1 AND certification_id = $2`
	d, err := scanDiploma(r.db.QueryRow(ctx, q, userID, certificationID))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// GetDiplomaByCode returns the diploma with the given verification code.
func (r *queries) GetDiplomaByCode(ctx context.Context, code string) (*models.Diploma, error) {
	d, err := scanDiploma(r.db.QueryRow(ctx, `SELECT `+diplomaColumns+` FROM diplomas WHERE verification_code = $1`, code))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// CreateDiploma inserts a diploma.
func (r *queries) CreateDiploma(ctx context.Context, d *models.Diploma) error {
	const q = `INSERT INTO diplomas (user_id, certification_id, verification_code, score, issued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5) RETURNING id, updated_at`
	if err := r.db.QueryRow(ctx, q, d.UserID, d.CertificationID, d.VerificationCode, d.Score, d.IssuedAt).Scan(&d.ID, &d.UpdatedAt); err != nil {
		return fmt.Errorf("insert diploma: %w", err)
	}
	return nil
}

// UpdateDiplomaScore overwrites the score of an existing diploma.
func (r *queries) UpdateDiplomaScore(ctx context.Context, id uuid.UUID, score int, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE diplomas SET score = $2, updated_at = $3 WHERE id = $1`, id, score, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDiplomasByUser returns the user's diplomas, newest first.
func (r *queries) ListDiplomasByUser(ctx context.Context, userID uuid.UUID) ([]*models.Diploma, error) {
	rows, err := r.db.Query(ctx, `SELECT `+diplomaColumns+` FROM diplomas WHERE user_id = $1 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Diploma
	for rows.Next() {
		d, err := scanDiploma(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// VerificationCodeExists checks certificates and diplomas.
func (r *queries) VerificationCodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM certificates WHERE verification_code = $1)
		OR EXISTS(SELECT 1 FROM diplomas WHERE verification_code = $1)`
	return r.exists(ctx, q, code)
}
