package credentials

import (
	"bytes"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
	"github.com/skillforge/marketplace/pkg/storage"
)

// Handler serves credential downloads and public verification.
type Handler struct {
	issuer *Issuer
	docs   *Documents
	logger *zap.Logger
}

// NewHandler creates a credentials handler.
func NewHandler(issuer *Issuer, docs *Documents, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, docs: docs, logger: logger}
}

// Verify handles GET /verify/:code. No authentication.
func (h *Handler) Verify(c *gin.Context) {
	v, err := h.issuer.Verify(c.Request.Context(), c.Param("code"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "no certificate or diploma matches this code")
		return
	}
	if err != nil {
		h.logger.Error("verify credential", zap.Error(err))
		response.Internal(c, "verification failed")
		return
	}
	response.OK(c, v)
}

// CertificatePDF handles GET /certificates/:courseId/pdf.
func (h *Handler) CertificatePDF(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	doc, err := h.docs.Certificate(c.Request.Context(), userID, courseID)
	if h.writeError(c, err) {
		return
	}
	h.servePDF(c, doc)
}

// CertificateDownloadURL handles GET /certificates/:courseId/download-url.
func (h *Handler) CertificateDownloadURL(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseId"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()
	doc, err := h.docs.Certificate(ctx, userID, courseID)
	if h.writeError(c, err) {
		return
	}
	url, err := h.docs.DownloadURL(ctx, doc)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, gin.H{"download_url": url})
}

// DiplomaPDF handles GET /diplomas/:slug/pdf.
func (h *Handler) DiplomaPDF(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	doc, err := h.docs.Diploma(c.Request.Context(), userID, c.Param("slug"))
	if h.writeError(c, err) {
		return
	}
	h.servePDF(c, doc)
}

func (h *Handler) servePDF(c *gin.Context, doc *Document) {
	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		h.logger.Error("render credential", zap.Error(err))
		response.Internal(c, "failed to render document")
		return
	}
	response.Attachment(c, doc.Filename(), storage.ContentTypePDF, buf.Bytes())
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrArchiveDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		h.logger.Error("credentials", zap.Error(err))
		response.Internal(c, "credential operation failed")
	}
	return true
}
