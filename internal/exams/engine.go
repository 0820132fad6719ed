// Package exams runs the certification exams: access gate, grading and diploma issue.
package exams

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	ErrAccessDenied = errors.New("purchase this certification to take its exam")
	ErrNoExam       = errors.New("this certification has no exam yet")
	ErrNotFound     = errors.New("certification not found")
)

// DiplomaIssuer records passing scores.
type DiplomaIssuer interface {
	IssueDiploma(ctx context.Context, userID, certificationID uuid.UUID, score int) (*models.Diploma, bool, error)
}

// View is the exam as shown to a candidate. Correct answers are never serialized.
type View struct {
	Certification  *models.Certification `json:"certification"`
	Exam           *models.Exam          `json:"exam"`
	PassingPercent int                   `json:"passing_percent"`
	Diploma        *models.Diploma       `json:"diploma,omitempty"`
}

// Result is the outcome of a submission.
type Result struct {
	Score
	PassingPercent int             `json:"passing_percent"`
	Passed         bool            `json:"passed"`
	Diploma        *models.Diploma `json:"diploma,omitempty"`
}

// Engine grades exams. Attempts are not limited.
type Engine struct {
	q              store.Querier
	issuer         DiplomaIssuer
	defaultPassing int
	logger         *zap.Logger
}

// NewEngine creates an exam engine. defaultPassing applies to exams without a threshold.
func NewEngine(q store.Querier, issuer DiplomaIssuer, defaultPassing int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPassing <= 0 {
		defaultPassing = models.DefaultPassingPercent
	}
	return &Engine{q: q, issuer: issuer, defaultPassing: defaultPassing, logger: logger}
}

// Certification resolves a slug and checks that userID may sit its exam.
func (e *Engine) Certification(ctx context.Context, userID uuid.UUID, slug string) (*models.Certification, error) {
	cert, err := e.q.GetCertificationBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certification: %w", err)
	}
	ok, err := e.q.HasCertificationAccess(ctx, userID, cert.ID)
	if err != nil {
		return nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, ErrAccessDenied
	}
	return cert, nil
}

// View returns the exam questions and any diploma the user already holds.
func (e *Engine) View(ctx context.Context, userID uuid.UUID, slug string) (*View, error) {
	cert, err := e.Certification(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	return e.ViewFor(ctx, userID, cert)
}

// ViewFor is View for a certification already checked by Certification.
func (e *Engine) ViewFor(ctx context.Context, userID uuid.UUID, cert *models.Certification) (*View, error) {
	exam, err := e.exam(ctx, cert.ID)
	if err != nil {
		return nil, err
	}
	v := &View{Certification: cert, Exam: exam, PassingPercent: e.passing(exam)}
	d, err := e.q.GetDiploma(ctx, userID, cert.ID)
	switch {
	case err == nil:
		v.Diploma = d
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("get diploma: %w", err)
	}
	return v, nil
}

// Submit grades answers and, on a pass, issues or rescores the diploma. A failed
// attempt changes nothing.
func (e *Engine) Submit(ctx context.Context, userID uuid.UUID, slug string, answers map[uuid.UUID]uuid.UUID) (*Result, error) {
	cert, err := e.Certification(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	return e.SubmitFor(ctx, userID, cert, answers)
}

// SubmitFor is Submit for a certification already checked by Certification.
func (e *Engine) SubmitFor(ctx context.Context, userID uuid.UUID, cert *models.Certification, answers map[uuid.UUID]uuid.UUID) (*Result, error) {
	exam, err := e.exam(ctx, cert.ID)
	if err != nil {
		return nil, err
	}
	score := Grade(exam, answers)
	res := &Result{Score: score, PassingPercent: e.passing(exam)}
	res.Passed = score.Passed(res.PassingPercent)

	log := e.logger.With(
		zap.String("user_id", userID.String()),
		zap.String("certification_id", cert.ID.String()),
		zap.Int("score", score.Percent),
	)
	if !res.Passed {
		log.Info("exam failed")
		return res, nil
	}
	res.Diploma, _, err = e.issuer.IssueDiploma(ctx, userID, cert.ID, score.Percent)
	if err != nil {
		return nil, fmt.Errorf("issue diploma: %w", err)
	}
	log.Info("exam passed")
	return res, nil
}

func (e *Engine) exam(ctx context.Context, certificationID uuid.UUID) (*models.Exam, error) {
	exam, err := e.q.GetExamByCertification(ctx, certificationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoExam
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

func (e *Engine) passing(exam *models.Exam) int {
	if exam.PassingPercent > 0 {
		return exam.PassingPercent
	}
	return e.defaultPassing
}
