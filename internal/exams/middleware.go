package exams

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
)

// ContextCertification is the context key for the resolved *models.Certification.
const ContextCertification = "certification"

// RequireCertificationAccess aborts unless the caller bought the certification named by :slug.
// Call after JWT.
func RequireCertificationAccess(engine *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		cert, err := engine.Certification(c.Request.Context(), userID, c.Param("slug"))
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, err.Error())
			c.Abort()
			return
		case errors.Is(err, ErrAccessDenied):
			response.Forbidden(c, err.Error())
			c.Abort()
			return
		case err != nil:
			engine.logger.Error("certification access", zap.Error(err))
			response.Internal(c, "failed to check access")
			c.Abort()
			return
		}
		c.Set(ContextCertification, cert)
		c.Next()
	}
}
