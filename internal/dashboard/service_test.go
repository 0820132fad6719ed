package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

func TestStudentView(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	student := m.AddUser(models.User{Email: "s@example.com"})
	active := m.AddCourse(models.Course{Title: "Go", Status: models.CourseStatusPublished})
	lessons := m.AddLessons(active.ID, 4)
	dropped := m.AddCourse(models.Course{Title: "Rust", Status: models.CourseStatusPublished})
	m.AddEnrollment(models.Enrollment{UserID: student.ID, CourseID: active.ID, Status: models.EnrollmentStatusActive})
	m.AddEnrollment(models.Enrollment{UserID: student.ID, CourseID: dropped.ID, Status: models.EnrollmentStatusCancelled})
	require.NoError(t, m.MarkLessonCompleted(ctx, student.ID, lessons[0].ID, time.Now()))
	require.NoError(t, m.CreateCertificate(ctx, &models.Certificate{UserID: student.ID, CourseID: dropped.ID, Serial: "CERT-2026-AAAAAA"}))

	v, err := NewService(m, nil).Build(ctx, student.ID, models.RoleStudent)
	require.NoError(t, err)
	sv, ok := v.(*StudentView)
	require.True(t, ok)
	assert.Equal(t, models.RoleStudent, sv.Role())
	require.Len(t, sv.Courses, 1, "cancelled enrollments are hidden")
	assert.Equal(t, "Go", sv.Courses[0].Course.Title)
	assert.Equal(t, 25, sv.Courses[0].Progress.Percent)
	assert.Len(t, sv.Certificates, 1)
	assert.Empty(t, sv.Diplomas)
}

func TestInstructorView(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	instructor := m.AddUser(models.User{Email: "t@example.com", Role: models.RoleInstructor})
	course := m.AddCourse(models.Course{Title: "Go", InstructorID: instructor.ID})
	m.AddCourse(models.Course{Title: "Someone else's", InstructorID: uuid.New()})
	for i := 0; i < 3; i++ {
		m.AddEnrollment(models.Enrollment{UserID: uuid.New(), CourseID: course.ID, Status: models.EnrollmentStatusActive})
	}

	v, err := NewService(m, nil).Build(ctx, instructor.ID, models.RoleInstructor)
	require.NoError(t, err)
	iv := v.(*InstructorView)
	require.Len(t, iv.Courses, 1)
	assert.Equal(t, 3, iv.Courses[0].Enrollments)
}

func TestAdminView(t *testing.T) {
	ctx := context.Background()
	m := storetest.NewMemory()
	admin := m.AddUser(models.User{Email: "a@example.com", Role: models.RoleAdmin})
	m.AddUser(models.User{Email: "s@example.com"})
	m.AddCourse(models.Course{Title: "Go", Status: models.CourseStatusPublished})
	m.AddCourse(models.Course{Title: "Draft", Status: models.CourseStatusDraft})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < RecentOrdersLimit+2; i++ {
		require.NoError(t, m.CreateOrder(ctx, &models.Order{
			Number:    fmt.Sprintf("ORD-%02d", i),
			UserID:    admin.ID,
			Status:    models.OrderStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	v, err := NewService(m, nil).Build(ctx, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
	av := v.(*AdminView)
	assert.Equal(t, 1, av.UsersByRole[models.RoleAdmin])
	assert.Equal(t, 1, av.UsersByRole[models.RoleStudent])
	assert.Equal(t, 1, av.PublishedCourses)
	require.Len(t, av.RecentOrders, RecentOrdersLimit)
	assert.Equal(t, "ORD-11", av.RecentOrders[0].Number)
}

func TestUnknownRole(t *testing.T) {
	_, err := NewService(storetest.NewMemory(), nil).Build(context.Background(), uuid.New(), "guest")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestHandlerTagsRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := storetest.NewMemory()
	instructor := m.AddUser(models.User{Email: "t@example.com", Role: models.RoleInstructor})

	r := gin.New()
	r.GET("/dashboard", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, instructor.ID)
		c.Set(middleware.ContextUserRole, string(models.RoleInstructor))
	}, NewHandler(NewService(m, nil), nil).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Role string         `json:"role"`
			View map[string]any `json:"view"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "instructor", body.Data.Role)
	assert.Contains(t, body.Data.View, "courses")
}
