package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
	"github.com/skillforge/marketplace/pkg/storage"
)

// ErrArchiveDisabled is returned for download links when no bucket is configured.
var ErrArchiveDisabled = errors.New("document archive is not configured")

// Document is everything printed on a certificate or diploma.
type Document struct {
	Kind             string
	UserID           uuid.UUID
	HolderName       string
	Title            string
	Serial           string
	VerificationCode string
	Score            *int
	IssuedAt         time.Time
}

func (d *Document) verification() *Verification {
	return &Verification{
		Kind:             d.Kind,
		HolderName:       d.HolderName,
		Title:            d.Title,
		Serial:           d.Serial,
		VerificationCode: d.VerificationCode,
		Score:            d.Score,
		IssuedAt:         d.IssuedAt,
	}
}

// ArchiveKey is the object key the rendered document is stored under.
func (d *Document) ArchiveKey() string {
	if d.Kind == KindDiploma {
		return storage.DiplomaKey(d.UserID.String(), d.VerificationCode)
	}
	return storage.CertificateKey(d.UserID.String(), d.Serial)
}

// Filename is the download file name.
func (d *Document) Filename() string {
	if d.Kind == KindDiploma {
		return d.VerificationCode + ".pdf"
	}
	return d.Serial + ".pdf"
}

func certificateDocument(ctx context.Context, q store.Querier, cert *models.Certificate) (*Document, error) {
	user, err := q.GetUser(ctx, cert.UserID)
	if err != nil {
		return nil, fmt.Errorf("get holder: %w", err)
	}
	course, err := q.GetCourse(ctx, cert.CourseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &Document{
		Kind:             KindCertificate,
		UserID:           cert.UserID,
		HolderName:       user.DisplayName(),
		Title:            course.Title,
		Serial:           cert.Serial,
		VerificationCode: cert.VerificationCode,
		IssuedAt:         cert.IssuedAt,
	}, nil
}

func diplomaDocument(ctx context.Context, q store.Querier, diploma *models.Diploma) (*Document, error) {
	user, err := q.GetUser(ctx, diploma.UserID)
	if err != nil {
		return nil, fmt.Errorf("get holder: %w", err)
	}
	cert, err := q.GetCertification(ctx, diploma.CertificationID)
	if err != nil {
		return nil, fmt.Errorf("get certification: %w", err)
	}
	score := diploma.Score
	return &Document{
		Kind:             KindDiploma,
		UserID:           diploma.UserID,
		HolderName:       user.DisplayName(),
		Title:            cert.Name,
		VerificationCode: diploma.VerificationCode,
		Score:            &score,
		IssuedAt:         diploma.IssuedAt,
	}, nil
}

// Archive stores rendered PDFs. *storage.S3 implements it.
type Archive interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	PresignedDownloadURL(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Documents renders a user's credentials and hands out archived copies.
type Documents struct {
	q       store.Querier
	archive Archive
	logger  *zap.Logger
}

// NewDocuments creates the document service. archive may be nil.
func NewDocuments(q store.Querier, archive Archive, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{q: q, archive: archive, logger: logger}
}

// Certificate loads the user's certificate for the course.
func (d *Documents) Certificate(ctx context.Context, userID, courseID uuid.UUID) (*Document, error) {
	cert, err := d.q.GetCertificate(ctx, userID, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return certificateDocument(ctx, d.q, cert)
}

// Diploma loads the user's diploma for the certification slug.
func (d *Documents) Diploma(ctx context.Context, userID uuid.UUID, slug string) (*Document, error) {
	cert, err := d.q.GetCertificationBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certification: %w", err)
	}
	diploma, err := d.q.GetDiploma(ctx, userID, cert.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get diploma: %w", err)
	}
	return diplomaDocument(ctx, d.q, diploma)
}

// DownloadURL archives the rendered document if needed and returns a pre-signed link.
func (d *Documents) DownloadURL(ctx context.Context, doc *Document) (string, error) {
	if d.archive == nil {
		return "", ErrArchiveDisabled
	}
	key := doc.ArchiveKey()
	found, err := d.archive.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		var buf bytes.Buffer
		if err := Render(&buf, doc); err != nil {
			return "", err
		}
		if err := d.archive.Upload(ctx, key, storage.ContentTypePDF, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
			return "", err
		}
		d.logger.Info("credential archived", zap.String("user_id", doc.UserID.String()), zap.String("key", key))
	}
	return d.archive.PresignedDownloadURL(ctx, key)
}
