// Package catalog serves courses, certifications and ratings, and lets instructors
// author courses.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotOwner         = errors.New("only the course instructor can change it")
	ErrInvalidCourse    = errors.New("invalid course")
	ErrAlreadyPublished = errors.New("only draft courses can be published")
	ErrInvalidScore     = errors.New("rating must be between 1 and 5")
	ErrRatingNotAllowed = errors.New("finish the course before rating it")
)

// CourseDetail is a course with its curriculum and rating summary.
type CourseDetail struct {
	*models.Course
	Modules []*models.Module     `json:"modules"`
	Rating  models.RatingSummary `json:"rating"`
}

// ExamSummary describes a certification exam without revealing answers.
type ExamSummary struct {
	Title          string `json:"title"`
	Questions      int    `json:"questions"`
	PassingPercent int    `json:"passing_percent"`
}

// CertificationDetail is a certification with its exam summary.
type CertificationDetail struct {
	*models.Certification
	Exam *ExamSummary `json:"exam,omitempty"`
}

// CourseInput is what an instructor submits to create a course.
type CourseInput struct {
	Title           string
	Description     string
	CategoryID      *uuid.UUID
	Difficulty      string
	DurationHours   int
	Price           decimal.Decimal
	DiscountedPrice *decimal.Decimal
	TotalSlots      int
}

// LessonInput is what an instructor submits to add a lesson.
type LessonInput struct {
	Title           string
	Content         string
	DurationMinutes int
}

// Service implements catalog reads and instructor authoring.
type Service struct {
	q      store.Querier
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a catalog service.
func NewService(q store.Querier, now func() time.Time, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{q: q, now: now, logger: logger}
}

// Courses lists published courses, optionally in one category.
func (s *Service) Courses(ctx context.Context, categorySlug string) ([]*models.Course, error) {
	list, err := s.q.ListPublishedCourses(ctx, strings.TrimSpace(categorySlug))
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return list, nil
}

// Course returns a published course with modules, lessons and rating. Unpublished
// courses are only visible to their instructor.
func (s *Service) Course(ctx context.Context, viewerID, courseID uuid.UUID) (*CourseDetail, error) {
	c, err := s.q.GetCourse(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if c.Status != models.CourseStatusPublished && c.InstructorID != viewerID {
		return nil, ErrNotFound
	}
	modules, err := s.q.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	rating, err := s.q.GetRatingSummary(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	rating.Average = roundAverage(rating.Average)
	return &CourseDetail{Course: c, Modules: modules, Rating: rating}, nil
}

// roundAverage rounds half away from zero to one decimal.
func roundAverage(avg float64) float64 {
	return decimal.NewFromFloat(avg).Round(1).InexactFloat64()
}

// Certifications lists active certifications in display order.
func (s *Service) Certifications(ctx context.Context) ([]*models.Certification, error) {
	list, err := s.q.ListActiveCertifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	return list, nil
}

// Certification returns an active certification by slug.
func (s *Service) Certification(ctx context.Context, slug string) (*CertificationDetail, error) {
	cert, err := s.q.GetCertificationBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get certification: %w", err)
	}
	if !cert.IsActive {
		return nil, ErrNotFound
	}
	out := &CertificationDetail{Certification: cert}
	exam, err := s.q.GetExamByCertification(ctx, cert.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get exam: %w", err)
	default:
		passing := exam.PassingPercent
		if passing <= 0 {
			passing = models.DefaultPassingPercent
		}
		out.Exam = &ExamSummary{Title: exam.Title, Questions: len(exam.Questions), PassingPercent: passing}
	}
	return out, nil
}

// InstructorCourses lists every course owned by the instructor.
func (s *Service) InstructorCourses(ctx context.Context, instructorID uuid.UUID) ([]*models.Course, error) {
	list, err := s.q.ListCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return list, nil
}

func (in *CourseInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidCourse)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidCourse)
	}
	if in.DiscountedPrice != nil && (in.DiscountedPrice.IsNegative() || in.DiscountedPrice.GreaterThan(in.Price)) {
		return fmt.Errorf("%w: discounted price must be between 0 and price", ErrInvalidCourse)
	}
	if in.TotalSlots <= 0 {
		return fmt.Errorf("%w: total slots must be positive", ErrInvalidCourse)
	}
	if in.DurationHours < 0 {
		return fmt.Errorf("%w: duration cannot be negative", ErrInvalidCourse)
	}
	switch strings.ToUpper(in.Difficulty) {
	case "":
		in.Difficulty = models.DifficultyBeginner
	case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
		in.Difficulty = strings.ToUpper(in.Difficulty)
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidCourse, in.Difficulty)
	}
	return nil
}

// CreateCourse stores a new DRAFT course with every seat available.
func (s *Service) CreateCourse(ctx context.Context, instructorID uuid.UUID, in CourseInput) (*models.Course, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &models.Course{
		InstructorID:   instructorID,
		CategoryID:     in.CategoryID,
		Title:          in.Title,
		Description:    in.Description,
		Difficulty:     in.Difficulty,
		DurationHours:  in.DurationHours,
		Price:          in.Price,
		Status:         models.CourseStatusDraft,
		TotalSlots:     in.TotalSlots,
		AvailableSlots: in.TotalSlots,
	}
	if in.DiscountedPrice != nil {
		c.DiscountedPrice = decimal.NewNullDecimal(*in.DiscountedPrice)
	}
	if err := s.q.CreateCourse(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.logger.Info("course created", zap.String("course_id", c.ID.String()), zap.String("instructor_id", instructorID.String()))
	return c, nil
}

func (s *Service) ownedCourse(ctx context.Context, instructorID, courseID uuid.UUID) (*models.Course, error) {
	c, err := s.q.GetCourse(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if c.InstructorID != instructorID {
		return nil, ErrNotOwner
	}
	return c, nil
}

// Publish moves an owned course from DRAFT to PUBLISHED.
func (s *Service) Publish(ctx context.Context, instructorID, courseID uuid.UUID) (*models.Course, error) {
	if _, err := s.ownedCourse(ctx, instructorID, courseID); err != nil {
		return nil, err
	}
	ok, err := s.q.UpdateCourseStatus(ctx, courseID, models.CourseStatusDraft, models.CourseStatusPublished, s.now())
	if err != nil {
		return nil, fmt.Errorf("publish course: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyPublished
	}
	c, err := s.q.GetCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	s.logger.Info("course published", zap.String("course_id", courseID.String()))
	return c, nil
}

// AddModule appends a module to an owned course.
func (s *Service) AddModule(ctx context.Context, instructorID, courseID uuid.UUID, title string) (*models.Module, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: module title is required", ErrInvalidCourse)
	}
	if _, err := s.ownedCourse(ctx, instructorID, courseID); err != nil {
		return nil, err
	}
	existing, err := s.q.ListModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	m := &models.Module{CourseID: courseID, Title: title, Position: len(existing) + 1}
	if err := s.q.CreateModule(ctx, m); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return m, nil
}

// AddLesson appends a lesson to a module of an owned course.
func (s *Service) AddLesson(ctx context.Context, instructorID, moduleID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: lesson title is required", ErrInvalidCourse)
	}
	if in.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration cannot be negative", ErrInvalidCourse)
	}
	mod, err := s.q.GetModule(ctx, moduleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if _, err := s.ownedCourse(ctx, instructorID, mod.CourseID); err != nil {
		return nil, err
	}
	modules, err := s.q.ListModules(ctx, mod.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	position := 1
	for _, m := range modules {
		if m.ID == moduleID {
			position = len(m.Lessons) + 1
		}
	}
	l := &models.Lesson{
		ModuleID:        moduleID,
		CourseID:        mod.CourseID,
		Title:           in.Title,
		Content:         in.Content,
		Position:        position,
		DurationMinutes: in.DurationMinutes,
	}
	if err := s.q.CreateLesson(ctx, l); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return l, nil
}

// Rate creates or replaces the user's rating. Only a completed enrollment may rate.
func (s *Service) Rate(ctx context.Context, userID, courseID uuid.UUID, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}
	e, err := s.q.GetEnrollment(ctx, userID, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRatingNotAllowed
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if e.Status != models.EnrollmentStatusCompleted {
		return nil, ErrRatingNotAllowed
	}
	r := &models.Rating{
		UserID:    userID,
		CourseID:  courseID,
		Score:     score,
		Comment:   strings.TrimSpace(comment),
		UpdatedAt: s.now(),
	}
	if err := s.q.UpsertRating(ctx, r); err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}
	return r, nil
}
