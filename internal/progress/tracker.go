// Package progress records lesson completion and triggers course certificates.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	ErrNotEnrolled    = errors.New("enroll in this course first")
	ErrLessonNotFound = errors.New("lesson not found")
)

// CertificateIssuer issues the certificate of a completed course.
type CertificateIssuer interface {
	IssueCourseCertificate(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, bool, error)
}

// Completion is the result of completing a lesson.
type Completion struct {
	Progress          models.Progress     `json:"progress"`
	Certificate       *models.Certificate `json:"certificate,omitempty"`
	CertificateIssued bool                `json:"certificate_issued"`
}

// Tracker computes course progress.
type Tracker struct {
	q      store.Querier
	issuer CertificateIssuer
	now    func() time.Time
	logger *zap.Logger
}

// NewTracker creates a progress tracker.
func NewTracker(q store.Querier, issuer CertificateIssuer, now func() time.Time, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{q: q, issuer: issuer, now: now, logger: logger}
}

// Compute returns floor(completed*100/total). A course without lessons is at 0%.
func Compute(courseID uuid.UUID, completed, total int) models.Progress {
	p := models.Progress{CourseID: courseID, Completed: completed, Total: total}
	if total > 0 {
		p.Percent = min(completed, total) * 100 / total
	}
	return p
}

func (t *Tracker) requireEnrollment(ctx context.Context, userID, courseID uuid.UUID) error {
	e, err := t.q.GetEnrollment(ctx, userID, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotEnrolled
	}
	if err != nil {
		return fmt.Errorf("get enrollment: %w", err)
	}
	if !e.GrantsAccess() {
		return ErrNotEnrolled
	}
	return nil
}

func (t *Tracker) compute(ctx context.Context, userID, courseID uuid.UUID) (models.Progress, error) {
	total, err := t.q.CountCourseLessons(ctx, courseID)
	if err != nil {
		return models.Progress{}, fmt.Errorf("count lessons: %w", err)
	}
	completed, err := t.q.CountCompletedLessons(ctx, userID, courseID)
	if err != nil {
		return models.Progress{}, fmt.Errorf("count completed lessons: %w", err)
	}
	return Compute(courseID, completed, total), nil
}

// Progress returns the user's progress in an enrolled course.
func (t *Tracker) Progress(ctx context.Context, userID, courseID uuid.UUID) (models.Progress, error) {
	if err := t.requireEnrollment(ctx, userID, courseID); err != nil {
		return models.Progress{}, err
	}
	return t.compute(ctx, userID, courseID)
}

// CompleteLesson marks the lesson done. Repeating it is harmless. Reaching 100%
// issues the course certificate.
func (t *Tracker) CompleteLesson(ctx context.Context, userID, lessonID uuid.UUID) (*Completion, error) {
	lesson, err := t.q.GetLesson(ctx, lessonID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if err := t.requireEnrollment(ctx, userID, lesson.CourseID); err != nil {
		return nil, err
	}
	if err := t.q.MarkLessonCompleted(ctx, userID, lessonID, t.now()); err != nil {
		return nil, fmt.Errorf("mark lesson completed: %w", err)
	}
	p, err := t.compute(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	out := &Completion{Progress: p}
	if !p.IsComplete() {
		return out, nil
	}
	out.Certificate, out.CertificateIssued, err = t.issuer.IssueCourseCertificate(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}
	return out, nil
}
