package coupons

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
)

// ApplyRequest is the body for POST /checkout/coupon.
type ApplyRequest struct {
	Code string `json:"code" binding:"required"`
}

// Handler handles applied-coupon endpoints.
type Handler struct {
	validator *Validator
	logger    *zap.Logger
}

// NewHandler creates a coupon handler.
func NewHandler(validator *Validator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{validator: validator, logger: logger}
}

// Apply handles POST /checkout/coupon.
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "enter a coupon code")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	coupon, err := h.validator.Apply(c.Request.Context(), userID, req.Code)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired), errors.Is(err, ErrExhausted):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		h.logger.Error("apply coupon", zap.Error(err))
		response.Internal(c, "failed to apply coupon")
		return
	}
	response.OK(c, coupon)
}

// Remove handles DELETE /checkout/coupon.
func (h *Handler) Remove(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.validator.Clear(c.Request.Context(), userID); err != nil {
		h.logger.Error("clear coupon", zap.Error(err))
		response.Internal(c, "failed to remove coupon")
		return
	}
	response.NoContent(c)
}
