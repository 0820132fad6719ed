package progress

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
)

// Handler handles learning progress endpoints.
type Handler struct {
	tracker *Tracker
	logger  *zap.Logger
}

// NewHandler creates a progress handler.
func NewHandler(tracker *Tracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tracker: tracker, logger: logger}
}

// Get handles GET /courses/:id/progress.
func (h *Handler) Get(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	p, err := h.tracker.Progress(c.Request.Context(), userID, courseID)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, p)
}

// CompleteLesson handles POST /lessons/:id/complete.
func (h *Handler) CompleteLesson(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lesson id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	out, err := h.tracker.CompleteLesson(c.Request.Context(), userID, lessonID)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, out)
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotEnrolled):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrLessonNotFound):
		response.NotFound(c, err.Error())
	default:
		h.logger.Error("progress", zap.Error(err))
		response.Internal(c, "progress operation failed")
	}
	return true
}
