package exams

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/pkg/response"
)

// Answer is one chosen option.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionID   uuid.UUID `json:"option_id" binding:"required"`
}

// SubmitRequest is the body for POST /certifications/:slug/exam.
type SubmitRequest struct {
	Answers []Answer `json:"answers"`
}

// Handler handles exam endpoints.
type Handler struct {
	engine *Engine
	logger *zap.Logger
}

// NewHandler creates an exam handler.
func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

// certification returns the certification resolved by RequireCertificationAccess,
// checking access itself when the middleware did not run.
func (h *Handler) certification(c *gin.Context, userID uuid.UUID) (*models.Certification, error) {
	if cert, ok := c.Get(ContextCertification); ok {
		if cert, ok := cert.(*models.Certification); ok {
			return cert, nil
		}
	}
	return h.engine.Certification(c.Request.Context(), userID, c.Param("slug"))
}

// View handles GET /certifications/:slug/exam.
func (h *Handler) View(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	cert, err := h.certification(c, userID)
	if h.writeError(c, err) {
		return
	}
	v, err := h.engine.ViewFor(c.Request.Context(), userID, cert)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, v)
}

// Submit handles POST /certifications/:slug/exam.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid answers")
		return
	}
	answers := make(map[uuid.UUID]uuid.UUID, len(req.Answers))
	for _, a := range req.Answers {
		answers[a.QuestionID] = a.OptionID
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	cert, err := h.certification(c, userID)
	if h.writeError(c, err) {
		return
	}
	res, err := h.engine.SubmitFor(c.Request.Context(), userID, cert, answers)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, res)
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAccessDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoExam):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error("exam", zap.Error(err))
		response.Internal(c, "exam operation failed")
	}
	return true
}
