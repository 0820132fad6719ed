package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
	"github.com/skillforge/marketplace/pkg/queue"
)

type recordingQueue struct {
	jobs []queue.EmailPayload
	err  error
}

func (r *recordingQueue) EnqueueEmail(_ context.Context, p queue.EmailPayload) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.jobs = append(r.jobs, p)
	return uuid.NewString(), nil
}

func TestOrderConfirmed(t *testing.T) {
	m := storetest.NewMemory()
	user := m.AddUser(models.User{Email: "buyer@example.com", FullName: "Grace <Hopper>"})
	jobs := &recordingQueue{}
	n := NewNotifier(m, jobs, nil)

	n.OrderConfirmed(context.Background(), &models.Order{
		Number:   "ORD-20260101120000-0042",
		UserID:   user.ID,
		Discount: decimal.RequireFromString("10"),
		Total:    decimal.RequireFromString("90"),
		CourseItems: []*models.OrderCourseItem{
			{Title: "Go", UnitPrice: decimal.RequireFromString("50"), Quantity: 2},
		},
	})

	require.Len(t, jobs.jobs, 1)
	job := jobs.jobs[0]
	assert.Equal(t, models.EmailTypeOrderConfirmation, job.EmailType)
	assert.Equal(t, "buyer@example.com", job.RecipientEmail)
	assert.Equal(t, "ORD-20260101120000-0042", job.Reference)
	assert.Equal(t, user.ID, *job.UserID)
	assert.Contains(t, job.Subject, "ORD-20260101120000-0042")
	assert.Contains(t, job.BodyHTML, "100.00")
	assert.Contains(t, job.BodyHTML, "-10.00")
	assert.Contains(t, job.BodyHTML, "90.00")
	assert.Contains(t, job.BodyHTML, "Grace &lt;Hopper&gt;")
}

func TestCredentialEmails(t *testing.T) {
	m := storetest.NewMemory()
	user := m.AddUser(models.User{Email: "grad@example.com"})
	course := m.AddCourse(models.Course{Title: "Kubernetes"})
	cert := m.AddCertification(models.Certification{Slug: "cka", Name: "CKA"})
	jobs := &recordingQueue{}
	n := NewNotifier(m, jobs, nil)

	n.CertificateIssued(context.Background(), &models.Certificate{UserID: user.ID, CourseID: course.ID, Serial: "CERT-2026-ABC123", VerificationCode: "ZX81ZX81"})
	n.DiplomaIssued(context.Background(), &models.Diploma{UserID: user.ID, CertificationID: cert.ID, VerificationCode: "DIP-ABCDEFGHIJKL", Score: 85})

	require.Len(t, jobs.jobs, 2)
	assert.Equal(t, models.EmailTypeCertificateIssued, jobs.jobs[0].EmailType)
	assert.Contains(t, jobs.jobs[0].Subject, "Kubernetes")
	assert.Contains(t, jobs.jobs[0].BodyHTML, "ZX81ZX81")
	assert.Equal(t, models.EmailTypeDiplomaIssued, jobs.jobs[1].EmailType)
	assert.Contains(t, jobs.jobs[1].BodyHTML, "85%")
	assert.Contains(t, jobs.jobs[1].BodyHTML, "grad@example.com", "falls back to the email as name")
}

func TestNotifierSwallowsFailures(t *testing.T) {
	m := storetest.NewMemory()
	user := m.AddUser(models.User{Email: "x@example.com"})
	jobs := &recordingQueue{err: errors.New("redis down")}
	n := NewNotifier(m, jobs, nil)

	assert.NotPanics(t, func() {
		n.OrderConfirmed(context.Background(), &models.Order{Number: "ORD-1", UserID: user.ID})
		n.OrderConfirmed(context.Background(), &models.Order{Number: "ORD-2", UserID: uuid.New()})
	})
	assert.Empty(t, jobs.jobs)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(nil).Send(context.Background(), Message{To: "a@example.com", Subject: "s"}))
	assert.IsType(t, &LogSender{}, NewSender(SMTPConfig{}, nil))
	assert.IsType(t, &SMTPSender{}, NewSender(SMTPConfig{Host: "smtp.example.com", Port: 587}, nil))
}
