// Package cart manages a user's course and certification line items.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var (
	// ErrUnavailable means the course is not purchasable or the certification is inactive.
	ErrUnavailable = errors.New("this item is not available")
	// ErrInvalidQuantity rejects quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNotEnoughSlots means the requested seats exceed the course's available slots.
	ErrNotEnoughSlots = errors.New("not enough seats left for this quantity")
)

// Cart is a snapshot of a user's cart priced at current catalog prices.
type Cart struct {
	Courses        []*models.CartCourseItem        `json:"courses"`
	Certifications []*models.CartCertificationItem `json:"certifications"`
	Subtotal       decimal.Decimal                 `json:"subtotal"`
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Courses) == 0 && len(c.Certifications) == 0
}

// Subtotal sums final price times quantity over all lines.
func Subtotal(courses []*models.CartCourseItem, certs []*models.CartCertificationItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range courses {
		total = total.Add(it.LineTotal())
	}
	for _, it := range certs {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Load reads the cart through q, so it can run inside a transaction.
func Load(ctx context.Context, q store.Querier, userID uuid.UUID) (*Cart, error) {
	courses, err := q.ListCartCourses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart courses: %w", err)
	}
	certs, err := q.ListCartCertifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart certifications: %w", err)
	}
	return &Cart{Courses: courses, Certifications: certs, Subtotal: Subtotal(courses, certs)}, nil
}

// Service implements cart operations. It never touches catalog availability.
type Service struct {
	q      store.Querier
	logger *zap.Logger
}

// NewService creates a cart service.
func NewService(q store.Querier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{q: q, logger: logger}
}

// Get returns the user's cart.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	return Load(ctx, s.q, userID)
}

// AddCourse adds qty seats of a purchasable course.
func (s *Service) AddCourse(ctx context.Context, userID, courseID uuid.UUID, qty int) (*models.CartCourseItem, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	course, err := s.q.GetCourse(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if !course.IsPurchasable() {
		return nil, ErrUnavailable
	}
	inCart, err := s.quantityInCart(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if inCart+qty > course.AvailableSlots {
		return nil, ErrNotEnoughSlots
	}
	item, err := s.q.AddCartCourse(ctx, userID, courseID, qty)
	if err != nil {
		return nil, fmt.Errorf("add cart course: %w", err)
	}
	item.Course = course
	s.logger.Debug("course added to cart", zap.String("user_id", userID.String()), zap.String("course_id", courseID.String()), zap.Int("quantity", item.Quantity))
	return item, nil
}

// AddCertification adds an active certification identified by slug.
func (s *Service) AddCertification(ctx context.Context, userID uuid.UUID, slug string, qty int) (*models.CartCertificationItem, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	cert, err := s.q.GetCertificationBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get certification: %w", err)
	}
	if !cert.IsActive {
		return nil, ErrUnavailable
	}
	item, err := s.q.AddCartCertification(ctx, userID, cert.ID, qty)
	if err != nil {
		return nil, fmt.Errorf("add cart certification: %w", err)
	}
	item.Certification = cert
	return item, nil
}

// RemoveCourse removes the course line. The bool is false when nothing was removed.
func (s *Service) RemoveCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	return s.q.RemoveCartCourse(ctx, userID, courseID)
}

// RemoveCertification removes the certification line. Unknown slugs remove nothing.
func (s *Service) RemoveCertification(ctx context.Context, userID uuid.UUID, slug string) (bool, error) {
	cert, err := s.q.GetCertificationBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get certification: %w", err)
	}
	return s.q.RemoveCartCertification(ctx, userID, cert.ID)
}

// Clear removes every line.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.q.ClearCart(ctx, userID)
}

func (s *Service) quantityInCart(ctx context.Context, userID, courseID uuid.UUID) (int, error) {
	items, err := s.q.ListCartCourses(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list cart courses: %w", err)
	}
	for _, it := range items {
		if it.CourseID == courseID {
			return it.Quantity, nil
		}
	}
	return 0, nil
}
