// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository"
	"github.com/needus/ecommerce-backend/internal/utils"
)

// maxAuditBody caps how much of a JSON body is copied into an audit row.
const maxAuditBody = 64 << 10

// sensitiveFields are never written to the audit trail.
var sensitiveFields = map[string]bool{"password": true, "token": true}

const auditWriteTimeout = 5 * time.Second

// AuditRecorder writes audit rows from a single worker fed by a bounded
// queue. Close drains the queue.
type AuditRecorder struct {
	store   repository.Store
	entries chan *models.AuditLog
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAuditRecorder(store repository.Store, queueSize int) *AuditRecorder {
	r := &AuditRecorder{
		store:   store,
		entries: make(chan *models.AuditLog, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := r.store.Audits().Create(ctx, entry); err != nil {
			logrus.WithFields(logrus.Fields{"action": entry.Action, "error": err}).Error("Failed to create audit log")
		}
		cancel()
	}
}

// Record queues entry. It never blocks: when the queue is full or the
// recorder is closed the entry is dropped and logged.
func (r *AuditRecorder) Record(entry *models.AuditLog) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		logrus.WithField("action", entry.Action).Warn("Audit recorder closed, dropping audit log")
		return
	}
	select {
	case r.entries <- entry:
	default:
		logrus.WithField("action", entry.Action).Warn("Audit queue full, dropping audit log")
	}
}

// Close stops accepting entries and waits until the queued ones are written
// or ctx is done.
func (r *AuditRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuditLogMiddleware records one audit row per mutating request through
// recorder.
func AuditLogMiddleware(recorder *AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for reads and health checks
		if c.Request.Method == http.MethodGet || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		var requestBody []byte
		if isJSON(c.Request) && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		values := models.JSONB{}
		if len(requestBody) > 0 {
			json.Unmarshal(requestBody, &values)
		} else if c.Request.PostForm != nil {
			for key, list := range c.Request.PostForm {
				if len(list) == 1 {
					values[key] = list[0]
				} else {
					values[key] = list
				}
			}
		}
		for key := range values {
			if sensitiveFields[strings.ToLower(key)] {
				delete(values, key)
			}
		}
		values["status"] = c.Writer.Status()

		auditLog := &models.AuditLog{
			Action:       c.Request.Method + " " + c.Request.URL.Path,
			ResourceType: extractResourceType(c.Request.URL.Path),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			NewValues:    values,
		}
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			auditLog.UserID = &userID
		}

		// Extract resource ID from URL if present
		if resourceID := extractResourceID(c.Request.URL.Path); resourceID != uuid.Nil {
			auditLog.ResourceID = &resourceID
		}

		recorder.Record(auditLog)
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// extractResourceType returns the segment after "admin", e.g. "products".
func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "admin" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(path string) uuid.UUID {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if id, err := uuid.Parse(part); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// RequestLogger logs every request through logrus.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		if userID, ok := c.Get("user_id"); ok {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request processed")
			return
		}
		entry.Info("Request processed")
	}
}
