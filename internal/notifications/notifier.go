// Package notifications turns domain events into queued emails and delivers them.
package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
	"github.com/skillforge/marketplace/pkg/queue"
)

// Enqueuer accepts email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) (string, error)
}

// Notifier enqueues notification emails. Failures are logged, never returned.
type Notifier struct {
	q      store.Querier
	jobs   Enqueuer
	logger *zap.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(q store.Querier, jobs Enqueuer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{q: q, jobs: jobs, logger: logger}
}

func (n *Notifier) enqueue(ctx context.Context, user *models.User, emailType, reference, subject, body string) {
	userID := user.ID
	id, err := n.jobs.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      emailType,
		UserID:         &userID,
		Reference:      reference,
		RecipientEmail: user.Email,
		Subject:        subject,
		BodyHTML:       body,
	})
	if err != nil {
		n.logger.Warn("enqueue email failed",
			zap.String("email_type", emailType),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("email enqueued", zap.String("job_id", id), zap.String("email_type", emailType))
}

func (n *Notifier) user(ctx context.Context, id uuid.UUID) (*models.User, bool) {
	u, err := n.q.GetUser(ctx, id)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		return nil, false
	}
	return u, true
}

// OrderConfirmed queues the order confirmation email.
func (n *Notifier) OrderConfirmed(ctx context.Context, order *models.Order) {
	u, ok := n.user(ctx, order.UserID)
	if !ok {
		return
	}
	data := orderData{Name: u.DisplayName(), Number: order.Number, Total: order.Total.StringFixed(2)}
	for _, it := range order.CourseItems {
		data.Lines = append(data.Lines, orderLine{Title: it.Title, Quantity: it.Quantity, Amount: it.LineTotal().StringFixed(2)})
	}
	for _, it := range order.CertificationItems {
		data.Lines = append(data.Lines, orderLine{Title: it.Name, Quantity: it.Quantity, Amount: it.LineTotal().StringFixed(2)})
	}
	if order.Discount.IsPositive() {
		data.Discount = order.Discount.StringFixed(2)
	}
	body, err := render(orderConfirmedTmpl, data)
	if err != nil {
		n.logger.Error("order email", zap.String("order_number", order.Number), zap.Error(err))
		return
	}
	n.enqueue(ctx, u, models.EmailTypeOrderConfirmation, order.Number,
		fmt.Sprintf("Order %s confirmed", order.Number), body)
}

// CertificateIssued queues the course certificate email.
func (n *Notifier) CertificateIssued(ctx context.Context, cert *models.Certificate) {
	u, ok := n.user(ctx, cert.UserID)
	if !ok {
		return
	}
	title := "your course"
	if c, err := n.q.GetCourse(ctx, cert.CourseID); err == nil {
		title = c.Title
	}
	body, err := render(certificateTmpl, credentialData{Name: u.DisplayName(), Title: title, Serial: cert.Serial, Code: cert.VerificationCode})
	if err != nil {
		n.logger.Error("certificate email", zap.String("serial", cert.Serial), zap.Error(err))
		return
	}
	n.enqueue(ctx, u, models.EmailTypeCertificateIssued, cert.Serial, "Your certificate for "+title, body)
}

// DiplomaIssued queues the certification diploma email.
func (n *Notifier) DiplomaIssued(ctx context.Context, diploma *models.Diploma) {
	u, ok := n.user(ctx, diploma.UserID)
	if !ok {
		return
	}
	title := "certification"
	if c, err := n.q.GetCertification(ctx, diploma.CertificationID); err == nil {
		title = c.Name
	}
	body, err := render(diplomaTmpl, credentialData{Name: u.DisplayName(), Title: title, Code: diploma.VerificationCode, Score: diploma.Score})
	if err != nil {
		n.logger.Error("diploma email", zap.String("code", diploma.VerificationCode), zap.Error(err))
		return
	}
	n.enqueue(ctx, u, models.EmailTypeDiplomaIssued, diploma.VerificationCode, "Your "+title+" diploma", body)
}
