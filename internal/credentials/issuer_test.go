package credentials

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

var issuedAt = time.Date(2026, 4, 18, 15, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu           sync.Mutex
	certificates []string
	diplomas     []string
}

func (n *recordingNotifier) CertificateIssued(_ context.Context, c *models.Certificate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.certificates = append(n.certificates, c.Serial)
}

func (n *recordingNotifier) DiplomaIssued(_ context.Context, d *models.Diploma) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.diplomas = append(n.diplomas, d.VerificationCode)
}

type courseFixture struct {
	m       *storetest.Memory
	issuer  *Issuer
	notify  *recordingNotifier
	user    models.User
	course  models.Course
	lessons []models.Lesson
}

func newCourseFixture(t *testing.T, lessons int) *courseFixture {
	t.Helper()
	m := storetest.NewMemory()
	n := &recordingNotifier{}
	f := &courseFixture{
		m:      m,
		notify: n,
		issuer: NewIssuer(m, n, func() time.Time { return issuedAt }, nil),
		user:   m.AddUser(models.User{Email: "ada@example.com", FullName: "Ada Lovelace"}),
		course: m.AddCourse(models.Course{Title: "Analytical Engines", Status: models.CourseStatusPublished, Price: decimal.NewFromInt(10)}),
	}
	f.lessons = m.AddLessons(f.course.ID, lessons)
	m.AddEnrollment(models.Enrollment{UserID: f.user.ID, CourseID: f.course.ID, Status: models.EnrollmentStatusActive, EnrolledAt: issuedAt.Add(-time.Hour)})
	return f
}

func (f *courseFixture) complete(t *testing.T, n int) {
	t.Helper()
	for _, l := range f.lessons[:n] {
		require.NoError(t, f.m.MarkLessonCompleted(context.Background(), f.user.ID, l.ID, issuedAt))
	}
}

func TestIssueCourseCertificate(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 4)
	f.complete(t, 4)

	cert, issued, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	require.True(t, issued)
	assert.Regexp(t, `^CERT-2026-[A-Z0-9]{6}$`, cert.Serial)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, cert.VerificationCode)
	assert.Equal(t, issuedAt, cert.IssuedAt)

	e, err := f.m.GetEnrollment(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, []string{cert.Serial}, f.notify.certificates)

	again, issued, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Equal(t, cert.Serial, again.Serial)
	assert.Equal(t, 1, f.m.CertificateCount())
	assert.Len(t, f.notify.certificates, 1)
}

func TestIssueCourseCertificateFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete", func(t *testing.T) {
		f := newCourseFixture(t, 4)
		f.complete(t, 3)
		cert, issued, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.False(t, issued)
		assert.Nil(t, cert)
		assert.Zero(t, f.m.CertificateCount())
	})

	t.Run("course without lessons", func(t *testing.T) {
		f := newCourseFixture(t, 0)
		cert, issued, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.False(t, issued)
		assert.Nil(t, cert)
	})

	t.Run("not enrolled", func(t *testing.T) {
		f := newCourseFixture(t, 1)
		stranger := f.m.AddUser(models.User{Email: "eve@example.com"})
		require.NoError(t, f.m.MarkLessonCompleted(ctx, stranger.ID, f.lessons[0].ID, issuedAt))
		_, issued, err := f.issuer.IssueCourseCertificate(ctx, stranger.ID, f.course.ID)
		require.NoError(t, err)
		assert.False(t, issued)
	})

	t.Run("enrollment cancelled", func(t *testing.T) {
		f := newCourseFixture(t, 1)
		f.m.AddEnrollment(models.Enrollment{UserID: f.user.ID, CourseID: f.course.ID, Status: models.EnrollmentStatusCancelled})
		f.complete(t, 1)
		_, issued, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
		require.NoError(t, err)
		assert.False(t, issued)
	})
}

func TestSerialCollisionIsRetried(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 1)
	f.complete(t, 1)
	other := f.m.AddUser(models.User{Email: "bob@example.com"})
	f.m.AddEnrollment(models.Enrollment{UserID: other.ID, CourseID: f.course.ID, Status: models.EnrollmentStatusActive})
	require.NoError(t, f.m.MarkLessonCompleted(ctx, other.ID, f.lessons[0].ID, issuedAt))

	draws := []string{"AAAAAA", "CODE0001", "AAAAAA", "BBBBBB", "CODE0001", "CODE0002"}
	f.issuer.random = func(n int) (string, error) {
		d := draws[0]
		draws = draws[1:]
		require.Len(t, d, n)
		return d, nil
	}

	first, _, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	second, _, err := f.issuer.IssueCourseCertificate(ctx, other.ID, f.course.ID)
	require.NoError(t, err)

	assert.Equal(t, "CERT-2026-AAAAAA", first.Serial)
	assert.Equal(t, "CERT-2026-BBBBBB", second.Serial)
	assert.Equal(t, "CODE0002", second.VerificationCode)
	assert.Empty(t, draws)
}

func TestCodeSpaceExhausted(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 1)
	f.complete(t, 1)
	f.issuer.random = func(n int) (string, error) { return strings.Repeat("A", n), nil }

	_, _, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)

	other := f.m.AddUser(models.User{Email: "bob@example.com"})
	f.m.AddEnrollment(models.Enrollment{UserID: other.ID, CourseID: f.course.ID, Status: models.EnrollmentStatusActive})
	require.NoError(t, f.m.MarkLessonCompleted(ctx, other.ID, f.lessons[0].ID, issuedAt))

	_, _, err = f.issuer.IssueCourseCertificate(ctx, other.ID, f.course.ID)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, 1, f.m.CertificateCount())

	e, err := f.m.GetEnrollment(ctx, other.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, e.Status, "nothing is half applied")
}

func TestIssueDiplomaRescoresWithoutReissue(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	n := &recordingNotifier{}
	clock := issuedAt
	issuer := NewIssuer(m, n, func() time.Time { return clock }, nil)
	user := m.AddUser(models.User{Email: "grace@example.com"})
	cert := m.AddCertification(models.Certification{Slug: "cobol", Name: "COBOL Professional", IsActive: true})

	first, created, err := issuer.IssueDiploma(ctx, user.ID, cert.ID, 70)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, `^DIP-[A-Z0-9]{12}$`, first.VerificationCode)
	assert.Equal(t, 70, first.Score)

	clock = clock.Add(48 * time.Hour)
	second, created, err := issuer.IssueDiploma(ctx, user.ID, cert.ID, 95)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.VerificationCode, second.VerificationCode)
	assert.Equal(t, 95, second.Score)
	assert.Equal(t, issuedAt, second.IssuedAt)

	stored, err := m.GetDiploma(ctx, user.ID, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, stored.Score)
	assert.Equal(t, clock, stored.UpdatedAt)
	assert.Equal(t, 1, m.DiplomaCount())
	assert.Len(t, n.diplomas, 1)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 1)
	f.complete(t, 1)
	cert, _, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	certification := f.m.AddCertification(models.Certification{Slug: "ml", Name: "Machine Learning"})
	diploma, _, err := f.issuer.IssueDiploma(ctx, f.user.ID, certification.ID, 88)
	require.NoError(t, err)

	v, err := f.issuer.Verify(ctx, " "+strings.ToLower(cert.VerificationCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, KindCertificate, v.Kind)
	assert.Equal(t, "Ada Lovelace", v.HolderName)
	assert.Equal(t, "Analytical Engines", v.Title)
	assert.Equal(t, cert.Serial, v.Serial)
	assert.Nil(t, v.Score)

	v, err = f.issuer.Verify(ctx, diploma.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, KindDiploma, v.Kind)
	assert.Equal(t, "Machine Learning", v.Title)
	require.NotNil(t, v.Score)
	assert.Equal(t, 88, *v.Score)

	for _, code := range []string{"", "NOPE1234", uuid.NewString()} {
		_, err := f.issuer.Verify(ctx, code)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}
