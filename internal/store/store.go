// Package store is the transactional persistence boundary of the marketplace.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
)

// ErrNotFound is returned by getters when no row matches.
var ErrNotFound = errors.New("not found")

// Querier is every data operation the domain services need. It is satisfied both by
// the pool-backed store and by the transaction handle passed to InTx callbacks.
type Querier interface {
	// Users
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CountUsersByRole(ctx context.Context) (map[models.Role]int, error)

	// Catalog
	ListPublishedCourses(ctx context.Context, categorySlug string) ([]*models.Course, error)
	ListCoursesByInstructor(ctx context.Context, instructorID uuid.UUID) ([]*models.Course, error)
	CountPublishedCourses(ctx context.Context) (int, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error)
	CreateCourse(ctx context.Context, c *models.Course) error
	UpdateCourseStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error)
	// AdjustCourseSlots adds delta to available_slots, clamped to [0, total_slots],
	// and returns the change actually applied.
	AdjustCourseSlots(ctx context.Context, courseID uuid.UUID, delta int) (int, error)
	ListModules(ctx context.Context, courseID uuid.UUID) ([]*models.Module, error)
	CreateModule(ctx context.Context, m *models.Module) error
	GetModule(ctx context.Context, id uuid.UUID) (*models.Module, error)
	CreateLesson(ctx context.Context, l *models.Lesson) error
	GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	GetRatingSummary(ctx context.Context, courseID uuid.UUID) (models.RatingSummary, error)
	UpsertRating(ctx context.Context, r *models.Rating) error

	ListActiveCertifications(ctx context.Context) ([]*models.Certification, error)
	GetCertification(ctx context.Context, id uuid.UUID) (*models.Certification, error)
	GetCertificationBySlug(ctx context.Context, slug string) (*models.Certification, error)
	GetExamByCertification(ctx context.Context, certificationID uuid.UUID) (*models.Exam, error)

	// Progress
	CountCourseLessons(ctx context.Context, courseID uuid.UUID) (int, error)
	CountCompletedLessons(ctx context.Context, userID, courseID uuid.UUID) (int, error)
	MarkLessonCompleted(ctx context.Context, userID, lessonID uuid.UUID, at time.Time) error

	// Cart
	ListCartCourses(ctx context.Context, userID uuid.UUID) ([]*models.CartCourseItem, error)
	ListCartCertifications(ctx context.Context, userID uuid.UUID) ([]*models.CartCertificationItem, error)
	AddCartCourse(ctx context.Context, userID, courseID uuid.UUID, qty int) (*models.CartCourseItem, error)
	AddCartCertification(ctx context.Context, userID, certificationID uuid.UUID, qty int) (*models.CartCertificationItem, error)
	RemoveCartCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	RemoveCartCertification(ctx context.Context, userID, certificationID uuid.UUID) (bool, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error

	// Coupons
	GetCoupon(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	// IncrementCouponUsage bumps used_count only while it is below max_uses.
	IncrementCouponUsage(ctx context.Context, id uuid.UUID) (bool, error)

	// Orders
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	// LockOrderByNumber re-reads the order and holds its row lock until the transaction ends.
	LockOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error)
	SetOrderItemSeats(ctx context.Context, itemID uuid.UUID, seats int) error

	// Payments and invoices
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error)

	// Enrollments and access
	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error)
	// EnsureEnrollment creates an ACTIVE enrollment, reactivates a CANCELLED one for
	// the new order, and otherwise returns the existing row unchanged.
	EnsureEnrollment(ctx context.Context, userID, courseID, orderID uuid.UUID, at time.Time) (*models.Enrollment, bool, error)
	CompleteEnrollment(ctx context.Context, id uuid.UUID, at time.Time) error
	CancelEnrollmentsByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Enrollment, error)
	CountEnrollmentsByCourse(ctx context.Context, courseID uuid.UUID) (int, error)
	EnsureCertificationAccess(ctx context.Context, userID, certificationID, orderID uuid.UUID, at time.Time) (bool, error)
	HasCertificationAccess(ctx context.Context, userID, certificationID uuid.UUID) (bool, error)

	// Credentials
	GetCertificate(ctx context.Context, userID, courseID uuid.UUID) (*models.Certificate, error)
	GetCertificateByCode(ctx context.Context, code string) (*models.Certificate, error)
	CertificateSerialExists(ctx context.Context, serial string) (bool, error)
	CreateCertificate(ctx context.Context, c *models.Certificate) error
	ListCertificatesByUser(ctx context.Context, userID uuid.UUID) ([]*models.Certificate, error)
	GetDiploma(ctx context.Context, userID, certificationID uuid.UUID) (*models.Diploma, error)
	GetDiplomaByCode(ctx context.Context, code string) (*models.Diploma, error)
	CreateDiploma(ctx context.Context, d *models.Diploma) error
	UpdateDiplomaScore(ctx context.Context, id uuid.UUID, score int, at time.Time) error
	ListDiplomasByUser(ctx context.Context, userID uuid.UUID) ([]*models.Diploma, error)
	// VerificationCodeExists checks certificates and diplomas.
	VerificationCodeExists(ctx context.Context, code string) (bool, error)
}

// Store is a Querier that can also run a callback atomically.
type Store interface {
	Querier
	// InTx runs fn inside one transaction. Any error rolls everything back.
	InTx(ctx context.Context, fn func(q Querier) error) error
}
