// Package credentials issues course certificates and certification diplomas, renders
// them as PDF and answers public verification lookups.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

// ErrNotFound is returned for unknown verification codes and missing documents.
var ErrNotFound = errors.New("credential not found")

// Notifier is told about newly issued credentials after the transaction commits.
type Notifier interface {
	CertificateIssued(ctx context.Context, cert *models.Certificate)
	DiplomaIssued(ctx context.Context, diploma *models.Diploma)
}

// Issuer creates certificates and diplomas.
type Issuer struct {
	store    store.Store
	notifier Notifier
	now      func() time.Time
	random   func(n int) (string, error)
	logger   *zap.Logger
}

// NewIssuer creates an issuer. notifier may be nil.
func NewIssuer(st store.Store, notifier Notifier, now func() time.Time, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{store: st, notifier: notifier, now: now, random: randomAlnum, logger: logger}
}

// IssueCourseCertificate issues the certificate for a fully completed course. It
// returns issued=false without error when the user already holds one (returned as
// is) or when the course is not complete (nil certificate). A course without lessons
// is never complete.
func (i *Issuer) IssueCourseCertificate(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, bool, error) {
	var cert *models.Certificate
	issued := false
	err := i.store.InTx(ctx, func(q store.Querier) error {
		existing, err := q.GetCertificate(ctx, userID, courseID)
		if err == nil {
			cert = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get certificate: %w", err)
		}

		enrollment, err := q.GetEnrollment(ctx, userID, courseID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get enrollment: %w", err)
		}
		if !enrollment.GrantsAccess() {
			return nil
		}
		total, err := q.CountCourseLessons(ctx, courseID)
		if err != nil {
			return fmt.Errorf("count lessons: %w", err)
		}
		completed, err := q.CountCompletedLessons(ctx, userID, courseID)
		if err != nil {
			return fmt.Errorf("count completed lessons: %w", err)
		}
		if !(models.Progress{Completed: completed, Total: total}).IsComplete() {
			return nil
		}

		now := i.now()
		year := strconv.Itoa(now.Year())
		serial, err := uniqueCode(ctx, func() (string, error) {
			suffix, err := i.random(6)
			return "CERT-" + year + "-" + suffix, err
		}, q.CertificateSerialExists)
		if err != nil {
			return err
		}
		code, err := uniqueCode(ctx, func() (string, error) { return i.random(8) }, q.VerificationCodeExists)
		if err != nil {
			return err
		}
		if enrollment.Status == models.EnrollmentStatusActive {
			if err := q.CompleteEnrollment(ctx, enrollment.ID, now); err != nil {
				return fmt.Errorf("complete enrollment: %w", err)
			}
		}
		cert = &models.Certificate{
			UserID:           userID,
			CourseID:         courseID,
			Serial:           serial,
			VerificationCode: code,
			IssuedAt:         now,
		}
		if err := q.CreateCertificate(ctx, cert); err != nil {
			return fmt.Errorf("create certificate: %w", err)
		}
		issued = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if issued {
		i.logger.Info("certificate issued",
			zap.String("user_id", userID.String()),
			zap.String("course_id", courseID.String()),
			zap.String("serial", cert.Serial),
		)
		if i.notifier != nil {
			i.notifier.CertificateIssued(ctx, cert)
		}
	}
	return cert, issued, nil
}

// IssueDiploma records a passing score. An existing diploma keeps its identity and
// verification code and only gets the new score. created reports a first issue.
func (i *Issuer) IssueDiploma(ctx context.Context, userID, certificationID uuid.UUID, score int) (*models.Diploma, bool, error) {
	var diploma *models.Diploma
	created := false
	err := i.store.InTx(ctx, func(q store.Querier) error {
		now := i.now()
		existing, err := q.GetDiploma(ctx, userID, certificationID)
		if err == nil {
			if err := q.UpdateDiplomaScore(ctx, existing.ID, score, now); err != nil {
				return fmt.Errorf("update diploma score: %w", err)
			}
			existing.Score = score
			existing.UpdatedAt = now
			diploma = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get diploma: %w", err)
		}
		code, err := uniqueCode(ctx, func() (string, error) {
			suffix, err := i.random(12)
			return "DIP-" + suffix, err
		}, q.VerificationCodeExists)
		if err != nil {
			return err
		}
		diploma = &models.Diploma{
			UserID:           userID,
			CertificationID:  certificationID,
			VerificationCode: code,
			Score:            score,
			IssuedAt:         now,
			UpdatedAt:        now,
		}
		if err := q.CreateDiploma(ctx, diploma); err != nil {
			return fmt.Errorf("create diploma: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	log := i.logger.With(zap.String("user_id", userID.String()), zap.String("certification_id", certificationID.String()), zap.Int("score", score))
	if !created {
		log.Info("diploma rescored")
		return diploma, false, nil
	}
	log.Info("diploma issued", zap.String("verification_code", diploma.VerificationCode))
	if i.notifier != nil {
		i.notifier.DiplomaIssued(ctx, diploma)
	}
	return diploma, true, nil
}

// Verification is the public view of a verified credential.
type Verification struct {
	Kind             string    `json:"kind"`
	HolderName       string    `json:"holder_name"`
	Title            string    `json:"title"`
	Serial           string    `json:"serial,omitempty"`
	VerificationCode string    `json:"verification_code"`
	Score            *int      `json:"score,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
}

// Credential kinds.
const (
	KindCertificate = "certificate"
	KindDiploma     = "diploma"
)

// Verify looks a certificate or diploma up by its verification code.
func (i *Issuer) Verify(ctx context.Context, code string) (*Verification, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}
	cert, err := i.store.GetCertificateByCode(ctx, code)
	if err == nil {
		doc, err := certificateDocument(ctx, i.store, cert)
		if err != nil {
			return nil, err
		}
		return doc.verification(), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	diploma, err := i.store.GetDiplomaByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get diploma: %w", err)
	}
	doc, err := diplomaDocument(ctx, i.store, diploma)
	if err != nil {
		return nil, err
	}
	return doc.verification(), nil
}
