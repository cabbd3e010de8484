package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

type recordingAudit struct {
	entries []models.AuditLog
	err     error
}

func (r *recordingAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func newAuditRouter(repo *recordingAudit, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "teacher-1", SchoolID: "school-a", Role: models.RoleTeacher})
		c.Next()
	})
	router.Use(Audit(repo, nil))
	router.POST("/results/actions", func(c *gin.Context) {
		RecordAudit(c, AuditEntry{
			Action:     models.AuditActionResultSave,
			Resource:   "results",
			ResourceID: "class-1",
			Details:    map[string]interface{}{"created": 2},
		})
		c.Status(status)
	})
	return router
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	repo := &recordingAudit{}
	router := newAuditRouter(repo, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/results/actions", nil))

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, "school-a", entry.SchoolID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "teacher-1", *entry.ActorID)
	assert.Equal(t, models.AuditActionResultSave, entry.Action)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "class-1", *entry.ResourceID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	assert.Equal(t, float64(2), payload["created"])
	assert.Equal(t, "/results/actions", payload["path"])
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	repo := &recordingAudit{}
	router := newAuditRouter(repo, http.StatusForbidden)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/results/actions", nil))

	assert.Empty(t, repo.entries)
}

func TestAuditFailureDoesNotChangeResponse(t *testing.T) {
	repo := &recordingAudit{err: errors.New("db down")}
	router := newAuditRouter(repo, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/results/actions", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
