package orders

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

// Gateway callback results.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
	ResultCancel  = "cancel"
)

// Gateway is what the simulated payment page shows for a valid token.
type Gateway struct {
	Order *models.Order `json:"order"`
	Token string        `json:"token"`
}

// verify checks the token and that it was minted for callerID.
func (s *Service) verify(callerID uuid.UUID, token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return "", err
	}
	if claims.UserID != callerID {
		return "", ErrSessionMismatch
	}
	return claims.OrderNumber, nil
}

// GatewaySummary resolves a payment token into the order it pays for.
func (s *Service) GatewaySummary(ctx context.Context, callerID uuid.UUID, token string) (*Gateway, error) {
	number, err := s.verify(callerID, token)
	if err != nil {
		return nil, err
	}
	order, err := s.owned(ctx, s.store, callerID, number)
	if err != nil {
		return nil, err
	}
	if !order.IsPayable() {
		return nil, ErrNotPending
	}
	return &Gateway{Order: order, Token: token}, nil
}

// HandleCallback is the gateway return entry point. It validates the result value,
// the token signature and expiry, the token owner and the order owner before acting.
// An order that already left PENDING is returned as already processed.
func (s *Service) HandleCallback(ctx context.Context, callerID uuid.UUID, result, token string) (*Outcome, error) {
	switch result {
	case ResultSuccess, ResultFail, ResultCancel:
	default:
		return nil, ErrInvalidResult
	}
	number, err := s.verify(callerID, token)
	if err != nil {
		s.logger.Warn("payment callback rejected", zap.String("user_id", callerID.String()), zap.Error(err))
		return nil, err
	}

	out, err := s.transition(ctx, number, callerID, func(q store.Querier, o *models.Order) (bool, error) {
		if result == ResultSuccess {
			return s.confirm(ctx, q, o, models.PaymentMethodSimulatedCard)
		}
		return s.fail(ctx, q, o)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("order_number", number), zap.String("result", result))
	if out.AlreadyProcessed {
		log.Info("payment callback for processed order", zap.String("status", out.Order.Status))
		return out, nil
	}
	log.Info("payment callback applied", zap.String("status", out.Order.Status))
	if out.Order.Status == models.OrderStatusConfirmed {
		s.notifyConfirmed(ctx, out.Order)
	}
	return out, nil
}
