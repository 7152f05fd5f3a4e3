package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"speakopoly_backend/internal/model"
	"speakopoly_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func token(t *testing.T, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	user := &model.User{Email: "pat@example.com", Role: role}
	user.ID = 42
	s, err := util.GenerateJWT(user, secret, ttl)
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": util.GetUserFromContext(c).UserID})
	})
	r.GET("/admin", AuthMiddleware(testSecret), RoleMiddleware(model.Admin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()
	learner := token(t, model.Learner, testSecret, time.Hour)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"bearer header", "/me", "Bearer " + learner, http.StatusOK},
		{"query token", "/me?token=" + learner, "", http.StatusOK},
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + token(t, model.Learner, "other", time.Hour), http.StatusUnauthorized},
		{"expired", "/me", "Bearer " + token(t, model.Learner, testSecret, -time.Minute), http.StatusUnauthorized},
		{"learner on admin route", "/admin", "Bearer " + learner, http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + token(t, model.Admin, testSecret, time.Hour), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

type seenRecorder struct {
	mu  sync.Mutex
	ids []uint
	wg  sync.WaitGroup
}

func (s *seenRecorder) UpdateLastSeen(userID uint) error {
	defer s.wg.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, userID)
	return nil
}

func TestActivityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &seenRecorder{}
	r := gin.New()
	r.GET("/ping", AuthMiddleware(testSecret), ActivityMiddleware(rec), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec.wg.Add(1)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, model.Learner, testSecret, time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	rec.wg.Wait()

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint{42}, rec.ids)
}
