package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/payments"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[string]*models.User)} }

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, email, hash, name string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: email, Password: hash, FullName: name, Role: role}
	m.users[email] = u
	return u, nil
}

func (m *memUsers) List(context.Context) ([]models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPublic
	for _, u := range m.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "a@example.com", string(models.RoleInstructor))
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "instructor", claims.Role)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestJWTRejectsPaymentToken(t *testing.T) {
	tokens := payments.NewTokenService("secret", 0, nil)
	paymentToken, _, err := tokens.Mint("ORD-1", uuid.New())
	require.NoError(t, err)
	_, err = NewJWTService("secret", 1).Validate(paymentToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsUnknownRole(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(uuid.New(), "a@example.com", "superuser")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func post(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := newMemUsers()
	jwtSvc := NewJWTService("secret", 1)
	h := NewHandler(users, jwtSvc, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	w := post(r, "/auth/register", RegisterRequest{Email: "Ada@Example.com", Password: "password1", FullName: "Ada", Role: "instructor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.RoleInstructor, created.Data.User.Role)
	assert.Equal(t, "ada@example.com", created.Data.User.Email)

	assert.Equal(t, http.StatusConflict, post(r, "/auth/register", RegisterRequest{Email: "ada@example.com", Password: "password1", FullName: "Ada"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/register", RegisterRequest{Email: "root@example.com", Password: "password1", FullName: "Root", Role: "admin"}).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/auth/register", RegisterRequest{Email: "short@example.com", Password: "short", FullName: "S"}).Code)

	w = post(r, "/auth/login", LoginRequest{Email: "ADA@example.com", Password: "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	claims, err := jwtSvc.Validate(login.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Data.User.ID, claims.UserID)

	assert.Equal(t, http.StatusUnauthorized, post(r, "/auth/login", LoginRequest{Email: "ada@example.com", Password: "wrong-password"}).Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "password1"}).Code)
}
