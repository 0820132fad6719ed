package exams

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/credentials"
	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

// buildExam creates n questions with four options each; the first option is correct.
func buildExam(certificationID uuid.UUID, n, passing int) *models.Exam {
	exam := &models.Exam{ID: uuid.New(), CertificationID: certificationID, Title: "Final", PassingPercent: passing}
	for i := 0; i < n; i++ {
		q := &models.ExamQuestion{ID: uuid.New(), ExamID: exam.ID, Position: i + 1, Text: "Q"}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, &models.AnswerOption{ID: uuid.New(), QuestionID: q.ID, Text: "A", IsCorrect: j == 0})
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam
}

// answer picks the correct option for the first `correct` questions and a wrong one for the rest.
func answer(exam *models.Exam, correct int) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID, len(exam.Questions))
	for i, q := range exam.Questions {
		if i < correct {
			out[q.ID] = q.Options[0].ID
		} else {
			out[q.ID] = q.Options[1].ID
		}
	}
	return out
}

func TestGrade(t *testing.T) {
	exam := buildExam(uuid.New(), 40, 70)
	other := buildExam(uuid.New(), 1, 70)

	tests := []struct {
		name    string
		answers map[uuid.UUID]uuid.UUID
		correct int
		percent int
	}{
		{"all correct", answer(exam, 40), 40, 100},
		{"exactly seventy", answer(exam, 28), 28, 70},
		{"floors not rounds", answer(exam, 27), 27, 67},
		{"nothing answered", nil, 0, 0},
		{"option of another question", map[uuid.UUID]uuid.UUID{exam.Questions[0].ID: exam.Questions[1].Options[0].ID}, 0, 0},
		{"option of another exam", map[uuid.UUID]uuid.UUID{exam.Questions[0].ID: other.Questions[0].Options[0].ID}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Grade(exam, tt.answers)
			assert.Equal(t, 40, s.Total)
			assert.Equal(t, tt.correct, s.Correct)
			assert.Equal(t, tt.percent, s.Percent)
		})
	}

	empty := Grade(&models.Exam{}, nil)
	assert.Zero(t, empty.Percent)
	assert.False(t, empty.Passed(0), "an exam without questions cannot be passed")
}

type examFixture struct {
	m      *storetest.Memory
	engine *Engine
	user   models.User
	cert   models.Certification
	exam   *models.Exam
}

func newExamFixture(t *testing.T, passing int) *examFixture {
	t.Helper()
	m := storetest.NewMemory()
	issuer := credentials.NewIssuer(m, nil, func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }, nil)
	f := &examFixture{
		m:      m,
		engine: NewEngine(m, issuer, 70, nil),
		user:   m.AddUser(models.User{Email: "candidate@example.com"}),
		cert:   m.AddCertification(models.Certification{Slug: "sre", Name: "Site Reliability", IsActive: true}),
	}
	f.exam = m.AddExam(buildExam(f.cert.ID, 40, passing))
	return f
}

func TestSubmitWithoutAccess(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 70)

	_, err := f.engine.View(ctx, f.user.ID, "sre")
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 40))
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Zero(t, f.m.DiplomaCount())

	_, err = f.engine.View(ctx, f.user.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitPassAtThreshold(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 70)
	f.m.GrantAccess(f.user.ID, f.cert.ID)

	res, err := f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 28))
	require.NoError(t, err)
	assert.Equal(t, 70, res.Percent)
	assert.True(t, res.Passed)
	require.NotNil(t, res.Diploma)
	assert.Equal(t, 70, res.Diploma.Score)
}

func TestSubmitFailThenRetake(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 70)
	f.m.GrantAccess(f.user.ID, f.cert.ID)

	res, err := f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 27))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Nil(t, res.Diploma)
	assert.Zero(t, f.m.DiplomaCount())

	first, err := f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 30))
	require.NoError(t, err)
	require.True(t, first.Passed)

	failed, err := f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 2))
	require.NoError(t, err)
	assert.False(t, failed.Passed)

	best, err := f.engine.Submit(ctx, f.user.ID, "sre", answer(f.exam, 40))
	require.NoError(t, err)
	require.True(t, best.Passed)
	assert.Equal(t, first.Diploma.VerificationCode, best.Diploma.VerificationCode)
	assert.Equal(t, 100, best.Diploma.Score)
	assert.Equal(t, 1, f.m.DiplomaCount())

	v, err := f.engine.View(ctx, f.user.ID, "sre")
	require.NoError(t, err)
	require.NotNil(t, v.Diploma)
	assert.Equal(t, 100, v.Diploma.Score)
}

func TestDefaultPassingPercent(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 0)
	f.m.GrantAccess(f.user.ID, f.cert.ID)

	v, err := f.engine.View(ctx, f.user.ID, "sre")
	require.NoError(t, err)
	assert.Equal(t, 70, v.PassingPercent)
}

func TestNoExam(t *testing.T) {
	ctx := context.Background()
	f := newExamFixture(t, 70)
	bare := f.m.AddCertification(models.Certification{Slug: "bare", IsActive: true})
	f.m.GrantAccess(f.user.ID, bare.ID)

	_, err := f.engine.Submit(ctx, f.user.ID, "bare", nil)
	assert.ErrorIs(t, err, ErrNoExam)
}

func TestRequireCertificationAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newExamFixture(t, 70)
	stranger := f.m.AddUser(models.User{Email: "stranger@example.com"})
	f.m.GrantAccess(f.user.ID, f.cert.ID)

	route := func(userID uuid.UUID) *gin.Engine {
		r := gin.New()
		r.GET("/certifications/:slug/exam",
			func(c *gin.Context) { c.Set(middleware.ContextUserID, userID) },
			RequireCertificationAccess(f.engine),
			func(c *gin.Context) {
				cert := c.MustGet(ContextCertification).(*models.Certification)
				c.String(http.StatusOK, cert.Slug)
			},
		)
		return r
	}

	tests := []struct {
		name string
		user uuid.UUID
		slug string
		code int
	}{
		{"buyer", f.user.ID, "sre", http.StatusOK},
		{"stranger", stranger.ID, "sre", http.StatusForbidden},
		{"unknown certification", f.user.ID, "nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/certifications/"+tt.slug+"/exam", nil)
			route(tt.user).ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestHandlerUsesResolvedCertification(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newExamFixture(t, 70)
	f.m.GrantAccess(f.user.ID, f.cert.ID)
	h := NewHandler(f.engine, nil)
	cert := f.cert

	r := gin.New()
	setUser := func(c *gin.Context) { c.Set(middleware.ContextUserID, f.user.ID) }
	r.GET("/certifications/:slug/exam", setUser, RequireCertificationAccess(f.engine), h.View)
	// The path slug is never looked up once the certification is in context.
	r.GET("/resolved/:slug", setUser, func(c *gin.Context) { c.Set(ContextCertification, &cert) }, h.View)
	r.GET("/unguarded/:slug", setUser, h.View)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}
	assert.Equal(t, http.StatusOK, get("/certifications/sre/exam").Code)
	assert.Equal(t, http.StatusOK, get("/resolved/does-not-exist").Code)
	assert.Equal(t, http.StatusNotFound, get("/unguarded/does-not-exist").Code, "falls back to a checked lookup")
	assert.Equal(t, http.StatusOK, get("/unguarded/sre").Code)
}
