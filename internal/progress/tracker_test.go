package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/credentials"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

func TestCompute(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		completed, total, percent int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{5, 3, 100},
	}
	for _, tt := range tests {
		p := Compute(id, tt.completed, tt.total)
		assert.Equal(t, tt.percent, p.Percent, "%d/%d", tt.completed, tt.total)
	}
	assert.False(t, Compute(id, 0, 0).IsComplete())
}

type fixture struct {
	m       *storetest.Memory
	tracker *Tracker
	user    models.User
	course  models.Course
	lessons []models.Lesson
}

func newFixture(t *testing.T, lessons int, status string) *fixture {
	t.Helper()
	m := storetest.NewMemory()
	clock := func() time.Time { return time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC) }
	f := &fixture{
		m:       m,
		tracker: NewTracker(m, credentials.NewIssuer(m, nil, clock, nil), clock, nil),
		user:    m.AddUser(models.User{Email: "learner@example.com", FullName: "Ada Learner"}),
		course:  m.AddCourse(models.Course{Title: "Go in Practice", Status: models.CourseStatusPublished}),
	}
	f.lessons = m.AddLessons(f.course.ID, lessons)
	if status != "" {
		m.AddEnrollment(models.Enrollment{UserID: f.user.ID, CourseID: f.course.ID, Status: status, EnrolledAt: clock()})
	}
	return f
}

func TestCompleteLessonsIssuesCertificateOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3, models.EnrollmentStatusActive)

	out, err := f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 33, out.Progress.Percent)
	assert.Nil(t, out.Certificate)

	// completing the same lesson twice does not advance progress
	out, err = f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Progress.Completed)

	_, err = f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[1].ID)
	require.NoError(t, err)
	out, err = f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Progress.Percent)
	require.NotNil(t, out.Certificate)
	assert.True(t, out.CertificateIssued)
	assert.Equal(t, 1, f.m.CertificateCount())

	again, err := f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[2].ID)
	require.NoError(t, err)
	require.NotNil(t, again.Certificate)
	assert.False(t, again.CertificateIssued)
	assert.Equal(t, out.Certificate.Serial, again.Certificate.Serial)
	assert.Equal(t, 1, f.m.CertificateCount())

	e, err := f.m.GetEnrollment(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, e.Status)

	p, err := f.tracker.Progress(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Percent)
}

func TestCompleteLessonRequiresEnrollment(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, 2, "")
	_, err := f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[0].ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)
	_, err = f.tracker.Progress(ctx, f.user.ID, f.course.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	cancelled := newFixture(t, 2, models.EnrollmentStatusCancelled)
	_, err = cancelled.tracker.CompleteLesson(ctx, cancelled.user.ID, cancelled.lessons[0].ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.tracker.CompleteLesson(ctx, f.user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestCompletedEnrollmentKeepsAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2, models.EnrollmentStatusCompleted)

	out, err := f.tracker.CompleteLesson(ctx, f.user.ID, f.lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Progress.Percent)
}
