package cart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/store/storetest"
)

func TestHandlerCourseLines(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := storetest.NewMemory()
	user := uuid.New()
	course := m.AddCourse(models.Course{Title: "Go", Status: models.CourseStatusPublished, Price: decimal.NewFromInt(100), TotalSlots: 3, AvailableSlots: 3})

	h := NewHandler(NewService(m, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, user) })
	r.GET("/cart", h.Get)
	r.POST("/cart/courses/:id", h.AddCourse)
	r.DELETE("/cart/courses/:id", h.RemoveCourse)

	do := func(method, path, body string) (int, map[string]any) {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w.Code, resp
	}
	path := "/cart/courses/" + course.ID.String()

	code, resp := do(http.MethodPost, path, "")
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 1, resp["data"].(map[string]any)["quantity"], "quantity defaults to one")

	code, resp = do(http.MethodPost, path, `{"quantity":3}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, ErrNotEnoughSlots.Error(), resp["error"])

	code, resp = do(http.MethodPost, path, `{"quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, ErrInvalidQuantity.Error(), resp["error"])

	code, resp = do(http.MethodPost, "/cart/courses/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, ErrUnavailable.Error(), resp["error"])

	code, _ = do(http.MethodPost, "/cart/courses/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(http.MethodGet, "/cart", "")
	assert.Equal(t, http.StatusOK, code)

	code, resp = do(http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp["data"].(map[string]any)["removed"])
	code, resp = do(http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, resp["data"].(map[string]any)["removed"])
}
