// Package payments mints and verifies the signed token that correlates a simulated
// gateway round trip with one pending order.
package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidOrExpiredToken covers forged, malformed and expired tokens alike.
var ErrInvalidOrExpiredToken = errors.New("payment link expired or invalid")

// DefaultTokenTTL is how long a payment link stays usable.
const DefaultTokenTTL = 30 * time.Minute

const (
	tokenIssuer   = "marketplace-checkout"
	tokenAudience = "payment-gateway"
)

// TokenClaims binds a payment token to one order and one user.
type TokenClaims struct {
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies payment tokens with HS256.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. ttl <= 0 uses DefaultTokenTTL; nil now uses time.Now.
func NewTokenService(secret string, ttl time.Duration, now func() time.Time) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: now}
}

// TTL returns the token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Mint returns a signed token for the order and its expiry time.
func (s *TokenService) Mint(orderNumber string, userID uuid.UUID) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.ttl)
	claims := TokenClaims{
		OrderNumber: orderNumber,
		UserID:      userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   orderNumber,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign payment token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies signature, issuer, audience and expiry, returning the embedded claims.
func (s *TokenService) Parse(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.OrderNumber == "" || claims.UserID == uuid.Nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return claims, nil
}
