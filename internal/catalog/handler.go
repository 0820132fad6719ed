package catalog

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/pkg/response"
)

// CreateCourseRequest is the body for POST /instructor/courses.
type CreateCourseRequest struct {
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	Difficulty      string           `json:"difficulty"`
	DurationHours   int              `json:"duration_hours"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	TotalSlots      int              `json:"total_slots" binding:"required"`
}

// ModuleRequest is the body for POST /instructor/courses/:id/modules.
type ModuleRequest struct {
	Title string `json:"title" binding:"required"`
}

// LessonRequest is the body for POST /instructor/modules/:id/lessons.
type LessonRequest struct {
	Title           string `json:"title" binding:"required"`
	Content         string `json:"content"`
	DurationMinutes int    `json:"duration_minutes"`
}

// RateRequest is the body for POST /courses/:id/rating.
type RateRequest struct {
	Score   int    `json:"score" binding:"required"`
	Comment string `json:"comment"`
}

// Handler handles catalog endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// ListCourses handles GET /courses?category=.
func (h *Handler) ListCourses(c *gin.Context) {
	list, err := h.svc.Courses(c.Request.Context(), c.Query("category"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, list)
}

// GetCourse handles GET /courses/:id.
func (h *Handler) GetCourse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var viewer uuid.UUID
	if v, ok := c.Get(middleware.ContextUserID); ok {
		viewer, _ = v.(uuid.UUID)
	}
	detail, err := h.svc.Course(c.Request.Context(), viewer, id)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, detail)
}

// ListCertifications handles GET /certifications.
func (h *Handler) ListCertifications(c *gin.Context) {
	list, err := h.svc.Certifications(c.Request.Context())
	if h.writeError(c, err) {
		return
	}
	response.OK(c, list)
}

// GetCertification handles GET /certifications/:slug.
func (h *Handler) GetCertification(c *gin.Context) {
	detail, err := h.svc.Certification(c.Request.Context(), c.Param("slug"))
	if h.writeError(c, err) {
		return
	}
	response.OK(c, detail)
}

// Rate handles POST /courses/:id/rating.
func (h *Handler) Rate(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	r, err := h.svc.Rate(c.Request.Context(), userID, courseID, req.Score, req.Comment)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, r)
}

// InstructorCourses handles GET /instructor/courses.
func (h *Handler) InstructorCourses(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.svc.InstructorCourses(c.Request.Context(), userID)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, list)
}

// CreateCourse handles POST /instructor/courses.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	course, err := h.svc.CreateCourse(c.Request.Context(), userID, CourseInput{
		Title:           req.Title,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		Difficulty:      req.Difficulty,
		DurationHours:   req.DurationHours,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
		TotalSlots:      req.TotalSlots,
	})
	if h.writeError(c, err) {
		return
	}
	response.Created(c, course)
}

// Publish handles POST /instructor/courses/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	course, err := h.svc.Publish(c.Request.Context(), userID, courseID)
	if h.writeError(c, err) {
		return
	}
	response.OK(c, course)
}

// AddModule handles POST /instructor/courses/:id/modules.
func (h *Handler) AddModule(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid course id")
		return
	}
	var req ModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	m, err := h.svc.AddModule(c.Request.Context(), userID, courseID, req.Title)
	if h.writeError(c, err) {
		return
	}
	response.Created(c, m)
}

// AddLesson handles POST /instructor/modules/:id/lessons.
func (h *Handler) AddLesson(c *gin.Context) {
	moduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid module id")
		return
	}
	var req LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	l, err := h.svc.AddLesson(c.Request.Context(), userID, moduleID, LessonInput{
		Title:           req.Title,
		Content:         req.Content,
		DurationMinutes: req.DurationMinutes,
	})
	if h.writeError(c, err) {
		return
	}
	response.Created(c, l)
}

func (h *Handler) writeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidCourse), errors.Is(err, ErrInvalidScore):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrRatingNotAllowed):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyPublished):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("catalog", zap.Error(err))
		response.Internal(c, "catalog operation failed")
	}
	return true
}
