// Package dashboard builds the role-specific home view.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/progress"
	"github.com/skillforge/marketplace/internal/store"
)

// RecentOrdersLimit is how many orders the admin view shows.
const RecentOrdersLimit = 10

// ErrUnknownRole is returned for roles without a dashboard.
var ErrUnknownRole = errors.New("no dashboard for this role")

// View is one of StudentView, InstructorView or AdminView.
type View interface {
	Role() models.Role
	view()
}

// EnrolledCourse is a course the student can access with their progress.
type EnrolledCourse struct {
	Course     *models.Course     `json:"course"`
	Enrollment *models.Enrollment `json:"enrollment"`
	Progress   models.Progress    `json:"progress"`
}

// StudentView lists what a student is learning and has earned.
type StudentView struct {
	Courses      []EnrolledCourse      `json:"courses"`
	Certificates []*models.Certificate `json:"certificates"`
	Diplomas     []*models.Diploma     `json:"diplomas"`
}

// CourseStats is an instructor course with its enrollment count.
type CourseStats struct {
	Course      *models.Course `json:"course"`
	Enrollments int            `json:"enrollments"`
}

// InstructorView lists the instructor's courses.
type InstructorView struct {
	Courses []CourseStats `json:"courses"`
}

// AdminView summarises the marketplace.
type AdminView struct {
	UsersByRole      map[models.Role]int `json:"users_by_role"`
	PublishedCourses int                 `json:"published_courses"`
	RecentOrders     []*models.Order     `json:"recent_orders"`
}

func (StudentView) Role() models.Role    { return models.RoleStudent }
func (InstructorView) Role() models.Role { return models.RoleInstructor }
func (AdminView) Role() models.Role      { return models.RoleAdmin }

func (StudentView) view()    {}
func (InstructorView) view() {}
func (AdminView) view()      {}

// Service assembles dashboards.
type Service struct {
	q      store.Querier
	logger *zap.Logger
}

// NewService creates a dashboard service.
func NewService(q store.Querier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{q: q, logger: logger}
}

// Build returns the dashboard for the user's role.
func (s *Service) Build(ctx context.Context, userID uuid.UUID, role models.Role) (View, error) {
	switch role {
	case models.RoleStudent:
		return s.student(ctx, userID)
	case models.RoleInstructor:
		return s.instructor(ctx, userID)
	case models.RoleAdmin:
		return s.admin(ctx)
	default:
		return nil, ErrUnknownRole
	}
}

func (s *Service) student(ctx context.Context, userID uuid.UUID) (*StudentView, error) {
	enrollments, err := s.q.ListEnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := &StudentView{Courses: []EnrolledCourse{}}
	for _, e := range enrollments {
		if !e.GrantsAccess() {
			continue
		}
		course, err := s.q.GetCourse(ctx, e.CourseID)
		if err != nil {
			return nil, fmt.Errorf("get course %s: %w", e.CourseID, err)
		}
		total, err := s.q.CountCourseLessons(ctx, e.CourseID)
		if err != nil {
			return nil, fmt.Errorf("count lessons: %w", err)
		}
		done, err := s.q.CountCompletedLessons(ctx, userID, e.CourseID)
		if err != nil {
			return nil, fmt.Errorf("count completed lessons: %w", err)
		}
		out.Courses = append(out.Courses, EnrolledCourse{Course: course, Enrollment: e, Progress: progress.Compute(e.CourseID, done, total)})
	}
	if out.Certificates, err = s.q.ListCertificatesByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if out.Diplomas, err = s.q.ListDiplomasByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("list diplomas: %w", err)
	}
	return out, nil
}

func (s *Service) instructor(ctx context.Context, userID uuid.UUID) (*InstructorView, error) {
	courses, err := s.q.ListCoursesByInstructor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := &InstructorView{Courses: make([]CourseStats, 0, len(courses))}
	for _, c := range courses {
		n, err := s.q.CountEnrollmentsByCourse(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count enrollments: %w", err)
		}
		out.Courses = append(out.Courses, CourseStats{Course: c, Enrollments: n})
	}
	return out, nil
}

func (s *Service) admin(ctx context.Context) (*AdminView, error) {
	users, err := s.q.CountUsersByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	published, err := s.q.CountPublishedCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	orders, err := s.q.ListRecentOrders(ctx, RecentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return &AdminView{UsersByRole: users, PublishedCourses: published, RecentOrders: orders}, nil
}
