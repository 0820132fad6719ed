package cart

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
)

// AddRequest is the optional body for the add endpoints.
type AddRequest struct {
	Quantity int `json:"quantity"`
}

// Handler handles cart HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a cart handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func quantity(c *gin.Context) int {
	var req AddRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.Quantity == 0 {
		return 1
	}
	return req.Quantity
}

// Get handles GET /cart.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	crt, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("load cart", zap.Error(err))
		response.Internal(c, "failed to load cart")
		return
	}
	response.OK(c, crt)
}

// AddCourse handles POST /cart/courses/:id.
func (h *Handler) AddCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	item, err := h.svc.AddCourse(c.Request.Context(), userID, courseID, quantity(c))
	if h.writeError(c, err) {
		return
	}
	response.Created(c, item)
}

// RemoveCourse handles DELETE /cart/courses/:id.
func (h *Handler) RemoveCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	removed, err := h.svc.RemoveCourse(c.Request.Context(), userID, courseID)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, gin.H{"removed": removed})
}

// AddCertification handles POST /cart/certifications/:slug.
func (h *Handler) AddCertification(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	item, err := h.svc.AddCertification(c.Request.Context(), userID, c.Param("slug"), quantity(c))
	if h.writeError(c, err) {
		return
	}
	response.Created(c, item)
}

// RemoveCertification handles DELETE /cart/certifications/:slug.
func (h *Handler) RemoveCertification(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	removed, err := h.svc.RemoveCertification(c.Request.Context(), userID, c.Param("slug"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, gin.H{"removed": removed})
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNotEnoughSlots):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("cart", zap.Error(err))
		response.Internal(c, "cart operation failed")
	}
	return true
}
