// Package storetest provides an in-memory store.Store for service tests.
package storetest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

type pair struct{ a, b uuid.UUID }

type memData struct {
	users        map[uuid.UUID]models.User
	categories   map[uuid.UUID]models.Category
	courses      map[uuid.UUID]models.Course
	modules      map[uuid.UUID]models.Module
	lessons      map[uuid.UUID]models.Lesson
	ratings      map[pair]models.Rating
	certs        map[uuid.UUID]models.Certification
	exams        map[uuid.UUID]*models.Exam // by certification id, read-only content
	progress     map[pair]time.Time         // (user, lesson)
	cartCourses  map[pair]models.CartCourseItem
	cartCerts    map[pair]models.CartCertificationItem
	coupons      map[uuid.UUID]models.Coupon
	orders       map[uuid.UUID]models.Order
	payments     map[uuid.UUID]models.Payment // by order id
	invoices     map[uuid.UUID]models.Invoice // by order id
	enrollments  map[pair]models.Enrollment
	access       map[pair]models.CertificationAccess
	certificates map[pair]models.Certificate
	diplomas     map[pair]models.Diploma

	faults *faults
}

type faults struct {
	mu   sync.Mutex
	next map[string]error
}

// Memory is an in-memory store.Store. InTx snapshots all tables and restores them
// when the callback fails. Calls outside InTx are not synchronized.
type Memory struct {
	*memData
	txMu sync.Mutex
}

var _ store.Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{memData: &memData{
		users:        make(map[uuid.UUID]models.User),
		categories:   make(map[uuid.UUID]models.Category),
		courses:      make(map[uuid.UUID]models.Course),
		modules:      make(map[uuid.UUID]models.Module),
		lessons:      make(map[uuid.UUID]models.Lesson),
		ratings:      make(map[pair]models.Rating),
		certs:        make(map[uuid.UUID]models.Certification),
		exams:        make(map[uuid.UUID]*models.Exam),
		progress:     make(map[pair]time.Time),
		cartCourses:  make(map[pair]models.CartCourseItem),
		cartCerts:    make(map[pair]models.CartCertificationItem),
		coupons:      make(map[uuid.UUID]models.Coupon),
		orders:       make(map[uuid.UUID]models.Order),
		payments:     make(map[uuid.UUID]models.Payment),
		invoices:     make(map[uuid.UUID]models.Invoice),
		enrollments:  make(map[pair]models.Enrollment),
		access:       make(map[pair]models.CertificationAccess),
		certificates: make(map[pair]models.Certificate),
		diplomas:     make(map[pair]models.Diploma),
		faults:       &faults{next: make(map[string]error)},
	}}
}

// InTx runs fn against the store and rolls every table back if fn fails.
func (m *Memory) InTx(ctx context.Context, fn func(q store.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.memData.snapshot()
	if err := fn(m.memData); err != nil {
		*m.memData = snap
		return err
	}
	return nil
}

func (d *memData) snapshot() memData {
	return memData{
		users:        maps.Clone(d.users),
		categories:   maps.Clone(d.categories),
		courses:      maps.Clone(d.courses),
		modules:      maps.Clone(d.modules),
		lessons:      maps.Clone(d.lessons),
		ratings:      maps.Clone(d.ratings),
		certs:        maps.Clone(d.certs),
		exams:        maps.Clone(d.exams),
		progress:     maps.Clone(d.progress),
		cartCourses:  maps.Clone(d.cartCourses),
		cartCerts:    maps.Clone(d.cartCerts),
		coupons:      maps.Clone(d.coupons),
		orders:       maps.Clone(d.orders),
		payments:     maps.Clone(d.payments),
		invoices:     maps.Clone(d.invoices),
		enrollments:  maps.Clone(d.enrollments),
		access:       maps.Clone(d.access),
		certificates: maps.Clone(d.certificates),
		diplomas:     maps.Clone(d.diplomas),
		faults:       d.faults,
	}
}

// FailNext makes the next call of the named Querier method return err.
func (m *Memory) FailNext(method string, err error) {
	m.faults.mu.Lock()
	defer m.faults.mu.Unlock()
	m.faults.next[method] = err
}

func (d *memData) fault(method string) error {
	d.faults.mu.Lock()
	defer d.faults.mu.Unlock()
	err, ok := d.faults.next[method]
	if ok {
		delete(d.faults.next, method)
	}
	return err
}

// Seeding helpers. Zero IDs are filled in and the stored value is returned.

// AddUser stores a user.
func (m *Memory) AddUser(u models.User) models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	m.users[u.ID] = u
	return u
}

// AddCategory stores a category.
func (m *Memory) AddCategory(c models.Category) models.Category {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.categories[c.ID] = c
	return c
}

// AddCourse stores a course.
func (m *Memory) AddCourse(c models.Course) models.Course {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.courses[c.ID] = c
	return c
}

// AddLessons creates one module holding n lessons for the course.
func (m *Memory) AddLessons(courseID uuid.UUID, n int) []models.Lesson {
	mod := models.Module{ID: uuid.New(), CourseID: courseID, Title: "Module", Position: len(m.modules) + 1}
	m.modules[mod.ID] = mod
	out := make([]models.Lesson, 0, n)
	for i := 0; i < n; i++ {
		l := models.Lesson{ID: uuid.New(), ModuleID: mod.ID, CourseID: courseID, Title: "Lesson", Position: i + 1}
		m.lessons[l.ID] = l
		out = append(out, l)
	}
	return out
}

// AddCertification stores a certification.
func (m *Memory) AddCertification(c models.Certification) models.Certification {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.certs[c.ID] = c
	return c
}

// AddExam stores the exam of a certification.
func (m *Memory) AddExam(e *models.Exam) *models.Exam {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.exams[e.CertificationID] = e
	return e
}

// AddCoupon stores a coupon.
func (m *Memory) AddCoupon(c models.Coupon) models.Coupon {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.coupons[c.ID] = c
	return c
}

// AddEnrollment stores an enrollment.
func (m *Memory) AddEnrollment(e models.Enrollment) models.Enrollment {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.enrollments[pair{e.UserID, e.CourseID}] = e
	return e
}

// GrantAccess stores a certification access row.
func (m *Memory) GrantAccess(userID, certificationID uuid.UUID) {
	m.access[pair{userID, certificationID}] = models.CertificationAccess{ID: uuid.New(), UserID: userID, CertificationID: certificationID}
}

// Row counts for assertions.

// OrderCount returns the number of orders.
func (m *Memory) OrderCount() int { return len(m.orders) }

// PaymentCount returns the number of payments.
func (m *Memory) PaymentCount() int { return len(m.payments) }

// InvoiceCount returns the number of invoices.
func (m *Memory) InvoiceCount() int { return len(m.invoices) }

// EnrollmentCount returns the number of enrollments.
func (m *Memory) EnrollmentCount() int { return len(m.enrollments) }

// CertificateCount returns the number of certificates.
func (m *Memory) CertificateCount() int { return len(m.certificates) }

// DiplomaCount returns the number of diplomas.
func (m *Memory) DiplomaCount() int { return len(m.diplomas) }
