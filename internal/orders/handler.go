package orders

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/coupons"
	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/payments"
	"github.com/skillforge/marketplace/pkg/response"
)

// AppliedCoupons is the per-user applied coupon session.
type AppliedCoupons interface {
	GetApplied(ctx context.Context, userID uuid.UUID) (*models.Coupon, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CallbackRequest is the gateway return body.
type CallbackRequest struct {
	Result string `json:"result" form:"result" binding:"required"`
	Token  string `json:"token" form:"token"`
}

// Handler handles checkout and order endpoints.
type Handler struct {
	svc            *Service
	coupons        AppliedCoupons
	gatewayEnabled bool
	logger         *zap.Logger
}

// NewHandler creates an order handler. With the gateway disabled POST /checkout
// confirms the order immediately.
func NewHandler(svc *Service, applied AppliedCoupons, gatewayEnabled bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, coupons: applied, gatewayEnabled: gatewayEnabled, logger: logger}
}

// orderView adds the payable flag used by the order list.
type orderView struct {
	*models.Order
	Payable bool `json:"payable"`
}

func gatewayURL(token string) string {
	return "/checkout/gateway?token=" + url.QueryEscape(token)
}

// Preview handles GET /checkout.
func (h *Handler) Preview(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()
	coupon, err := h.coupons.GetApplied(ctx, userID)
	if err != nil {
		h.logger.Warn("read applied coupon", zap.Error(err))
		coupon = nil
	}
	p, err := h.svc.Preview(ctx, userID, coupon)
	if err != nil {
		h.logger.Error("checkout preview", zap.Error(err))
		response.Internal(c, "failed to load checkout")
		return
	}
	response.OK(c, p)
}

// Checkout handles POST /checkout.
func (h *Handler) Checkout(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()
	coupon, err := h.coupons.GetApplied(ctx, userID)
	if err != nil {
		h.logger.Error("read applied coupon", zap.Error(err))
		response.Internal(c, "failed to start checkout")
		return
	}

	if !h.gatewayEnabled {
		order, err := h.svc.CheckoutImmediate(ctx, userID, coupon)
		if h.writeError(c, err) {
			return
		}
		h.clearCoupon(ctx, userID, coupon)
		response.Created(c, gin.H{"order": order})
		return
	}

	co, err := h.svc.StartCheckout(ctx, userID, coupon)
	if h.writeError(c, err) {
		return
	}
	h.clearCoupon(ctx, userID, coupon)
	response.Created(c, gin.H{
		"order":            co.Order,
		"payment_token":    co.PaymentToken,
		"token_expires_at": co.TokenExpiresAt,
		"gateway_url":      gatewayURL(co.PaymentToken),
	})
}

// Gateway handles GET /checkout/gateway.
func (h *Handler) Gateway(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	g, err := h.svc.GatewaySummary(c.Request.Context(), userID, c.Query("token"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, g)
}

// Return handles POST /checkout/return.
func (h *Handler) Return(c *gin.Context) {
	var req CallbackRequest
	bindErr := c.ShouldBind(&req)
	if strings.TrimSpace(req.Token) == "" {
		response.BadRequest(c, payments.ErrInvalidOrExpiredToken.Error())
		return
	}
	if bindErr != nil {
		response.BadRequest(c, ErrInvalidResult.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	out, err := h.svc.HandleCallback(c.Request.Context(), userID, req.Result, req.Token)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, gin.H{
		"order_number":      out.Order.Number,
		"status":            out.Order.Status,
		"already_processed": out.AlreadyProcessed,
	})
}

// List handles GET /orders.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.svc.List(c.Request.Context(), userID)
	if h.writeError(c, err) {
		return
	}
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, orderView{Order: o, Payable: o.IsPayable()})
	}
	response.OK(c, views)
}

// Get handles GET /orders/:number.
func (h *Handler) Get(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	d, err := h.svc.Get(c.Request.Context(), userID, c.Param("number"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, d)
}

// Continue handles POST /orders/:number/continue.
func (h *Handler) Continue(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	co, err := h.svc.ContinuePayment(c.Request.Context(), userID, c.Param("number"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, gin.H{
		"order":            co.Order,
		"payment_token":    co.PaymentToken,
		"token_expires_at": co.TokenExpiresAt,
		"gateway_url":      gatewayURL(co.PaymentToken),
	})
}

// CancelOwn handles POST /orders/:number/cancel.
func (h *Handler) CancelOwn(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	order, err := h.svc.CancelOwned(c.Request.Context(), userID, c.Param("number"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, order)
}

// Cancel handles POST /admin/orders/:number/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	order, err := h.svc.CancelConfirmed(c.Request.Context(), c.Param("number"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, order)
}

func (h *Handler) clearCoupon(ctx context.Context, userID uuid.UUID, coupon *models.Coupon) {
	if coupon == nil {
		return
	}
	if err := h.coupons.Clear(ctx, userID); err != nil {
		h.logger.Warn("clear applied coupon", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrInvalidResult),
		errors.Is(err, payments.ErrInvalidOrExpiredToken),
		errors.Is(err, coupons.ErrNotFound),
		errors.Is(err, coupons.ErrExpired),
		errors.Is(err, coupons.ErrExhausted):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrSessionMismatch):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotCancellable):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("orders", zap.Error(err))
		response.Internal(c, "order operation failed")
	}
	return true
}
