package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
)

const auditEntryKey = "audit_entry"

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditEntry describes a mutation a handler wants recorded once the request succeeds.
type AuditEntry struct {
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
}

// RecordAudit attaches an audit entry to the request. Only the last entry is kept.
func RecordAudit(c *gin.Context, entry AuditEntry) {
	c.Set(auditEntryKey, entry)
}

// Audit writes the entry recorded by the handler after successful requests. Write
// failures are logged and never change the response.
func Audit(repo auditWriter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}
		value, ok := c.Get(auditEntryKey)
		if !ok {
			return
		}
		entry, ok := value.(AuditEntry)
		if !ok {
			return
		}
		claims, ok := ClaimsFrom(c)
		if !ok {
			return
		}

		payload := map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": requestid.Value(c),
		}
		for k, v := range entry.Details {
			payload[k] = v
		}
		body, _ := json.Marshal(payload)

		actorID := claims.UserID
		var resourceID *string
		if entry.ResourceID != "" {
			id := entry.ResourceID
			resourceID = &id
		}
		if err := repo.Create(c.Request.Context(), &models.AuditLog{
			SchoolID:   claims.SchoolID,
			ActorID:    &actorID,
			Action:     entry.Action,
			Resource:   entry.Resource,
			ResourceID: resourceID,
			Payload:    body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to record audit log",
				zap.String("action", entry.Action),
				zap.String("request_id", requestid.Value(c)),
				zap.Error(err))
		}
	}
}
