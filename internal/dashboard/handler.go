package dashboard

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/pkg/response"
)

// Response wraps a dashboard view with its role tag.
type Response struct {
	Role models.Role `json:"role"`
	View View        `json:"view"`
}

// Handler handles GET /dashboard.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /dashboard.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := models.Role(c.GetString(middleware.ContextUserRole))
	v, err := h.svc.Build(c.Request.Context(), userID, role)
	if errors.Is(err, ErrUnknownRole) {
		response.Forbidden(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("dashboard", zap.String("user_id", userID.String()), zap.Error(err))
		response.Internal(c, "failed to load dashboard")
		return
	}
	response.OK(c, Response{Role: v.Role(), View: v})
}
