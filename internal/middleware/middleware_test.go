package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	if s.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newProtectedRouter(v TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/secure", JWT(v), RequireRoles(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.UserIDKey))
	})
	return router
}

func serve(router http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsBearerToken(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleHR}}
	w := serve(newProtectedRouter(v, models.RoleHR), "bearer abc.def")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())
	assert.Equal(t, "abc.def", v.seen)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	router := newProtectedRouter(&stubValidator{claims: &models.JWTClaims{UserID: "u"}}, models.RoleHR)
	for _, header := range []string{"", "Basic abc", "Bearer "} {
		w := serve(router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
	w := serve(newProtectedRouter(&stubValidator{}, models.RoleHR), "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "invalid token"))
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleViewer}}
	w := serve(newProtectedRouter(v, models.RoleHR, models.RoleManager), "Bearer t")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `path="/sessions/:id"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "wp-admin")
}
