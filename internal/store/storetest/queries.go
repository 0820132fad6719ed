package storetest

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store"
)

var errDuplicate = errors.New("duplicate key")

func (d *memData) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (d *memData) CountUsersByRole(_ context.Context) (map[models.Role]int, error) {
	out := make(map[models.Role]int)
	for _, u := range d.users {
		out[u.Role]++
	}
	return out, nil
}

func (d *memData) sortedCourses(keep func(models.Course) bool) []*models.Course {
	var list []*models.Course
	for _, c := range d.courses {
		if keep(c) {
			c := c
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Title < list[j].Title
	})
	return list
}

func (d *memData) ListPublishedCourses(_ context.Context, categorySlug string) ([]*models.Course, error) {
	var categoryID *uuid.UUID
	if categorySlug != "" {
		for _, cat := range d.categories {
			if cat.Slug == categorySlug {
				id := cat.ID
				categoryID = &id
			}
		}
		if categoryID == nil {
			return nil, nil
		}
	}
	return d.sortedCourses(func(c models.Course) bool {
		if c.Status != models.CourseStatusPublished {
			return false
		}
		return categoryID == nil || (c.CategoryID != nil && *c.CategoryID == *categoryID)
	}), nil
}

func (d *memData) ListCoursesByInstructor(_ context.Context, instructorID uuid.UUID) ([]*models.Course, error) {
	return d.sortedCourses(func(c models.Course) bool { return c.InstructorID == instructorID }), nil
}

func (d *memData) CountPublishedCourses(_ context.Context) (int, error) {
	n := 0
	for _, c := range d.courses {
		if c.Status == models.CourseStatusPublished {
			n++
		}
	}
	return n, nil
}

func (d *memData) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	c, ok := d.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (d *memData) CreateCourse(_ context.Context, c *models.Course) error {
	c.ID = uuid.New()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt
	d.courses[c.ID] = *c
	return nil
}

func (d *memData) UpdateCourseStatus(_ context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error) {
	c, ok := d.courses[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = at
	if to == models.CourseStatusPublished {
		c.PublishedAt = &at
	}
	d.courses[id] = c
	return true, nil
}

func (d *memData) AdjustCourseSlots(_ context.Context, courseID uuid.UUID, delta int) (int, error) {
	if err := d.fault("AdjustCourseSlots"); err != nil {
		return 0, err
	}
	c, ok := d.courses[courseID]
	if !ok {
		return 0, store.ErrNotFound
	}
	prev := c.AvailableSlots
	c.AvailableSlots = min(max(c.AvailableSlots+delta, 0), c.TotalSlots)
	d.courses[courseID] = c
	return c.AvailableSlots - prev, nil
}

func (d *memData) ListModules(_ context.Context, courseID uuid.UUID) ([]*models.Module, error) {
	var list []*models.Module
	for _, m := range d.modules {
		if m.CourseID != courseID {
			continue
		}
		m := m
		m.Lessons = nil
		for _, l := range d.lessons {
			if l.ModuleID == m.ID {
				l := l
				m.Lessons = append(m.Lessons, &l)
			}
		}
		sort.Slice(m.Lessons, func(i, j int) bool { return m.Lessons[i].Position < m.Lessons[j].Position })
		list = append(list, &m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	return list, nil
}

func (d *memData) CreateModule(_ context.Context, m *models.Module) error {
	m.ID = uuid.New()
	d.modules[m.ID] = *m
	return nil
}

func (d *memData) GetModule(_ context.Context, id uuid.UUID) (*models.Module, error) {
	m, ok := d.modules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (d *memData) CreateLesson(_ context.Context, l *models.Lesson) error {
	l.ID = uuid.New()
	d.lessons[l.ID] = *l
	return nil
}

func (d *memData) GetLesson(_ context.Context, id uuid.UUID) (*models.Lesson, error) {
	l, ok := d.lessons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (d *memData) GetRatingSummary(_ context.Context, courseID uuid.UUID) (models.RatingSummary, error) {
	var s models.RatingSummary
	sum := 0
	for _, r := range d.ratings {
		if r.CourseID == courseID {
			sum += r.Score
			s.Count++
		}
	}
	if s.Count > 0 {
		s.Average = math.Round(float64(sum)/float64(s.Count)*1e6) / 1e6
	}
	return s, nil
}

func (d *memData) UpsertRating(_ context.Context, r *models.Rating) error {
	k := pair{r.UserID, r.CourseID}
	if prev, ok := d.ratings[k]; ok {
		r.ID = prev.ID
		r.CreatedAt = prev.CreatedAt
	} else {
		r.ID = uuid.New()
		r.CreatedAt = r.UpdatedAt
	}
	d.ratings[k] = *r
	return nil
}

func (d *memData) ListActiveCertifications(_ context.Context) ([]*models.Certification, error) {
	var list []*models.Certification
	for _, c := range d.certs {
		if c.IsActive {
			c := c
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].DisplayOrder != list[j].DisplayOrder {
			return list[i].DisplayOrder < list[j].DisplayOrder
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (d *memData) GetCertification(_ context.Context, id uuid.UUID) (*models.Certification, error) {
	c, ok := d.certs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (d *memData) GetCertificationBySlug(_ context.Context, slug string) (*models.Certification, error) {
	for _, c := range d.certs {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *memData) GetExamByCertification(_ context.Context, certificationID uuid.UUID) (*models.Exam, error) {
	e, ok := d.exams[certificationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

func (d *memData) CountCourseLessons(_ context.Context, courseID uuid.UUID) (int, error) {
	n := 0
	for _, l := range d.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (d *memData) CountCompletedLessons(_ context.Context, userID, courseID uuid.UUID) (int, error) {
	n := 0
	for k := range d.progress {
		if k.a != userID {
			continue
		}
		if l, ok := d.lessons[k.b]; ok && l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (d *memData) MarkLessonCompleted(_ context.Context, userID, lessonID uuid.UUID, at time.Time) error {
	k := pair{userID, lessonID}
	if _, ok := d.progress[k]; !ok {
		d.progress[k] = at
	}
	return nil
}

func (d *memData) ListCartCourses(_ context.Context, userID uuid.UUID) ([]*models.CartCourseItem, error) {
	var list []*models.CartCourseItem
	for k, it := range d.cartCourses {
		if k.a != userID {
			continue
		}
		it := it
		if c, ok := d.courses[it.CourseID]; ok {
			it.Course = &c
		}
		list = append(list, &it)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AddedAt.Before(list[j].AddedAt) })
	return list, nil
}

func (d *memData) ListCartCertifications(_ context.Context, userID uuid.UUID) ([]*models.CartCertificationItem, error) {
	var list []*models.CartCertificationItem
	for k, it := range d.cartCerts {
		if k.a != userID {
			continue
		}
		it := it
		if c, ok := d.certs[it.CertificationID]; ok {
			it.Certification = &c
		}
		list = append(list, &it)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AddedAt.Before(list[j].AddedAt) })
	return list, nil
}

func (d *memData) AddCartCourse(_ context.Context, userID, courseID uuid.UUID, qty int) (*models.CartCourseItem, error) {
	k := pair{userID, courseID}
	it, ok := d.cartCourses[k]
	if ok {
		it.Quantity += qty
	} else {
		it = models.CartCourseItem{ID: uuid.New(), UserID: userID, CourseID: courseID, Quantity: qty, AddedAt: time.Now()}
	}
	d.cartCourses[k] = it
	return &it, nil
}

func (d *memData) AddCartCertification(_ context.Context, userID, certificationID uuid.UUID, qty int) (*models.CartCertificationItem, error) {
	k := pair{userID, certificationID}
	it, ok := d.cartCerts[k]
	if ok {
		it.Quantity += qty
	} else {
		it = models.CartCertificationItem{ID: uuid.New(), UserID: userID, CertificationID: certificationID, Quantity: qty, AddedAt: time.Now()}
	}
	d.cartCerts[k] = it
	return &it, nil
}

func (d *memData) RemoveCartCourse(_ context.Context, userID, courseID uuid.UUID) (bool, error) {
	k := pair{userID, courseID}
	_, ok := d.cartCourses[k]
	delete(d.cartCourses, k)
	return ok, nil
}

func (d *memData) RemoveCartCertification(_ context.Context, userID, certificationID uuid.UUID) (bool, error) {
	k := pair{userID, certificationID}
	_, ok := d.cartCerts[k]
	delete(d.cartCerts, k)
	return ok, nil
}

func (d *memData) ClearCart(_ context.Context, userID uuid.UUID) error {
	if err := d.fault("ClearCart"); err != nil {
		return err
	}
	for k := range d.cartCourses {
		if k.a == userID {
			delete(d.cartCourses, k)
		}
	}
	for k := range d.cartCerts {
		if k.a == userID {
			delete(d.cartCerts, k)
		}
	}
	return nil
}

func (d *memData) GetCoupon(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	c, ok := d.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (d *memData) GetCouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	for _, c := range d.coupons {
		if strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *memData) IncrementCouponUsage(_ context.Context, id uuid.UUID) (bool, error) {
	c, ok := d.coupons[id]
	if !ok || c.UsedCount >= c.MaxUses {
		return false, nil
	}
	c.UsedCount++
	d.coupons[id] = c
	return true, nil
}

func (d *memData) OrderNumberExists(_ context.Context, number string) (bool, error) {
	for _, o := range d.orders {
		if o.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func copyOrder(o models.Order) *models.Order {
	out := o
	out.CourseItems = make([]*models.OrderCourseItem, 0, len(o.CourseItems))
	for _, it := range o.CourseItems {
		c := *it
		out.CourseItems = append(out.CourseItems, &c)
	}
	out.CertificationItems = make([]*models.OrderCertificationItem, 0, len(o.CertificationItems))
	for _, it := range o.CertificationItems {
		c := *it
		out.CertificationItems = append(out.CertificationItems, &c)
	}
	return &out
}

func (d *memData) CreateOrder(_ context.Context, o *models.Order) error {
	if err := d.fault("CreateOrder"); err != nil {
		return err
	}
	if exists, _ := d.OrderNumberExists(context.Background(), o.Number); exists {
		return errDuplicate
	}
	o.ID = uuid.New()
	o.UpdatedAt = o.CreatedAt
	for _, it := range o.CourseItems {
		it.ID = uuid.New()
		it.OrderID = o.ID
	}
	for _, it := range o.CertificationItems {
		it.ID = uuid.New()
		it.OrderID = o.ID
	}
	d.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (d *memData) GetOrderByNumber(_ context.Context, number string) (*models.Order, error) {
	for _, o := range d.orders {
		if o.Number == number {
			return copyOrder(o), nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *memData) LockOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return d.GetOrderByNumber(ctx, number)
}

func (d *memData) sortedOrders(keep func(models.Order) bool) []*models.Order {
	var list []*models.Order
	for _, o := range d.orders {
		if keep(o) {
			list = append(list, copyOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Number > list[j].Number
	})
	return list
}

func (d *memData) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return d.sortedOrders(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (d *memData) ListRecentOrders(_ context.Context, limit int) ([]*models.Order, error) {
	list := d.sortedOrders(func(models.Order) bool { return true })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (d *memData) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to string, at time.Time) (bool, error) {
	o, ok := d.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	d.orders[id] = o
	return true, nil
}

func (d *memData) SetOrderItemSeats(_ context.Context, itemID uuid.UUID, seats int) error {
	for id, o := range d.orders {
		for i, it := range o.CourseItems {
			if it.ID != itemID {
				continue
			}
			// Items are shared with the rollback snapshot, so replace rather than mutate.
			cp := copyOrder(o)
			cp.CourseItems[i].SeatsTaken = seats
			d.orders[id] = *cp
			return nil
		}
	}
	return store.ErrNotFound
}

func (d *memData) GetPaymentByOrder(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	p, ok := d.payments[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (d *memData) CreatePayment(_ context.Context, p *models.Payment) error {
	if _, ok := d.payments[p.OrderID]; ok {
		return errDuplicate
	}
	p.ID = uuid.New()
	d.payments[p.OrderID] = *p
	return nil
}

func (d *memData) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	for _, inv := range d.invoices {
		if inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (d *memData) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	if err := d.fault("CreateInvoice"); err != nil {
		return err
	}
	if _, ok := d.invoices[inv.OrderID]; ok {
		return errDuplicate
	}
	inv.ID = uuid.New()
	d.invoices[inv.OrderID] = *inv
	return nil
}

func (d *memData) GetInvoiceByOrder(_ context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	inv, ok := d.invoices[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (d *memData) GetEnrollment(_ context.Context, userID, courseID uuid.UUID) (*models.Enrollment, error) {
	e, ok := d.enrollments[pair{userID, courseID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (d *memData) EnsureEnrollment(_ context.Context, userID, courseID, orderID uuid.UUID, at time.Time) (*models.Enrollment, bool, error) {
	k := pair{userID, courseID}
	e, ok := d.enrollments[k]
	switch {
	case !ok:
		e = models.Enrollment{ID: uuid.New(), UserID: userID, CourseID: courseID}
	case e.Status != models.EnrollmentStatusCancelled:
		return &e, false, nil
	}
	oid := orderID
	e.OrderID = &oid
	e.Status = models.EnrollmentStatusActive
	e.EnrolledAt = at
	e.CompletedAt = nil
	d.enrollments[k] = e
	return &e, true, nil
}

func (d *memData) CompleteEnrollment(_ context.Context, id uuid.UUID, at time.Time) error {
	for k, e := range d.enrollments {
		if e.ID == id && e.Status == models.EnrollmentStatusActive {
			e.Status = models.EnrollmentStatusCompleted
			e.CompletedAt = &at
			d.enrollments[k] = e
		}
	}
	return nil
}

func (d *memData) CancelEnrollmentsByOrder(_ context.Context, orderID uuid.UUID) (int, error) {
	n := 0
	for k, e := range d.enrollments {
		if e.OrderID != nil && *e.OrderID == orderID && e.Status != models.EnrollmentStatusCancelled {
			e.Status = models.EnrollmentStatusCancelled
			d.enrollments[k] = e
			n++
		}
	}
	return n, nil
}

func (d *memData) ListEnrollmentsByUser(_ context.Context, userID uuid.UUID) ([]*models.Enrollment, error) {
	var list []*models.Enrollment
	for k, e := range d.enrollments {
		if k.a == userID {
			e := e
			list = append(list, &e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EnrolledAt.After(list[j].EnrolledAt) })
	return list, nil
}

func (d *memData) CountEnrollmentsByCourse(_ context.Context, courseID uuid.UUID) (int, error) {
	n := 0
	for k, e := range d.enrollments {
		if k.b == courseID && e.Status != models.EnrollmentStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (d *memData) EnsureCertificationAccess(_ context.Context, userID, certificationID, orderID uuid.UUID, at time.Time) (bool, error) {
	k := pair{userID, certificationID}
	if _, ok := d.access[k]; ok {
		return false, nil
	}
	oid := orderID
	d.access[k] = models.CertificationAccess{ID: uuid.New(), UserID: userID, CertificationID: certificationID, OrderID: &oid, GrantedAt: at}
	return true, nil
}

func (d *memData) HasCertificationAccess(_ context.Context, userID, certificationID uuid.UUID) (bool, error) {
	_, ok := d.access[pair{userID, certificationID}]
	return ok, nil
}

func (d *memData) GetCertificate(_ context.Context, userID, courseID uuid.UUID) (*models.Certificate, error) {
	c, ok := d.certificates[pair{userID, courseID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (d *memData) GetCertificateByCode(_ context.Context, code string) (*models.Certificate, error) {
	for _, c := range d.certificates {
		if c.VerificationCode == code {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *memData) CertificateSerialExists(_ context.Context, serial string) (bool, error) {
	for _, c := range d.certificates {
		if c.Serial == serial {
			return true, nil
		}
	}
	return false, nil
}

func (d *memData) CreateCertificate(_ context.Context, c *models.Certificate) error {
	k := pair{c.UserID, c.CourseID}
	if _, ok := d.certificates[k]; ok {
		return errDuplicate
	}
	c.ID = uuid.New()
	d.certificates[k] = *c
	return nil
}

func (d *memData) ListCertificatesByUser(_ context.Context, userID uuid.UUID) ([]*models.Certificate, error) {
	var list []*models.Certificate
	for k, c := range d.certificates {
		if k.a == userID {
			c := c
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].IssuedAt.After(list[j].IssuedAt) })
	return list, nil
}

func (d *memData) GetDiploma(_ context.Context, userID, certificationID uuid.UUID) (*models.Diploma, error) {
	dp, ok := d.diplomas[pair{userID, certificationID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &dp, nil
}

func (d *memData) GetDiplomaByCode(_ context.Context, code string) (*models.Diploma, error) {
	for _, dp := range d.diplomas {
		if dp.VerificationCode == code {
			return &dp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *memData) CreateDiploma(_ context.Context, dp *models.Diploma) error {
	k := pair{dp.UserID, dp.CertificationID}
	if _, ok := d.diplomas[k]; ok {
		return errDuplicate
	}
	dp.ID = uuid.New()
	dp.UpdatedAt = dp.IssuedAt
	d.diplomas[k] = *dp
	return nil
}

func (d *memData) UpdateDiplomaScore(_ context.Context, id uuid.UUID, score int, at time.Time) error {
	for k, dp := range d.diplomas {
		if dp.ID == id {
			dp.Score = score
			dp.UpdatedAt = at
			d.diplomas[k] = dp
			return nil
		}
	}
	return store.ErrNotFound
}

func (d *memData) ListDiplomasByUser(_ context.Context, userID uuid.UUID) ([]*models.Diploma, error) {
	var list []*models.Diploma
	for k, dp := range d.diplomas {
		if k.a == userID {
			dp := dp
			list = append(list, &dp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].IssuedAt.After(list[j].IssuedAt) })
	return list, nil
}

func (d *memData) VerificationCodeExists(_ context.Context, code string) (bool, error) {
	for _, c := range d.certificates {
		if c.VerificationCode == code {
			return true, nil
		}
	}
	for _, dp := range d.diplomas {
		if dp.VerificationCode == code {
			return true, nil
		}
	}
	return false, nil
}
