package emaillogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillforge/marketplace/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a delivery record and fills its ID and created_at.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (user_id, email_type, reference, recipient_email, subject, status, attempt, sent_at, error_message)
		VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''), $6, $7, $8, NULLIF($9,''))
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.UserID, el.EmailType, el.Reference, el.RecipientEmail, el.Subject,
		el.Status, el.Attempt, el.SentAt, el.ErrorMessage).Scan(&el.ID, &el.CreatedAt)
}

// ListRecent returns the latest email logs, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	const q = `SELECT id, user_id, email_type, COALESCE(reference,''), recipient_email, COALESCE(subject,''),
		status, attempt, sent_at, COALESCE(error_message,''), created_at
		FROM email_logs
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		if err := rows.Scan(&el.ID, &el.UserID, &el.EmailType, &el.Reference, &el.RecipientEmail, &el.Subject,
			&el.Status, &el.Attempt, &el.SentAt, &el.ErrorMessage, &el.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
