package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/logger"
)

func newAuthRouter(tokens *service.TokenService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(tokens), RequireRoles(roles...))
	router.GET("/whoami", func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":    claims.UserID,
			"school":  c.GetString(logger.SchoolIDKey),
			"teacher": c.GetString(logger.TeacherIDKey),
		})
	})
	return router
}

func TestJWTAcceptsValidToken(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret"})
	token, _, err := tokens.IssueToken("teacher-1", "school-a", models.RoleTeacher, "", 0)
	require.NoError(t, err)

	router := newAuthRouter(tokens, models.RoleTeacher)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"teacher-1","school":"school-a","teacher":"teacher-1"}`, w.Body.String())
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := newAuthRouter(service.NewTokenService(service.TokenConfig{Secret: "secret"}), models.RoleTeacher)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	}
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret"})
	token, _, err := tokens.IssueToken("student-1", "school-a", models.RoleStudent, "", 0)
	require.NoError(t, err)

	router := newAuthRouter(tokens, models.RoleTeacher, models.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
