package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/needus/ecommerce-backend/internal/models"
	"github.com/needus/ecommerce-backend/internal/repository/memory"
	"github.com/needus/ecommerce-backend/internal/services"
	"github.com/needus/ecommerce-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// errorCode decodes the response envelope and returns its error code.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func TestAuthRequired(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		actor, ok := services.ActorFrom(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "actor": actor.UserID.String()})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	for _, header := range []string{"Token abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", header)
		w = serve(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, w), header)
	}

	userID := uuid.New()
	token, err := utils.GenerateJWT(userID, "admin", string(models.UserRoleAdmin), 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"`+userID.String()+`"`)
	assert.Contains(t, w.Body.String(), `"actor":"`+userID.String()+`"`)
}

func TestAdminRequired(t *testing.T) {
	withRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
		}
	}

	tests := []struct {
		role string
		want int
	}{
		{"", http.StatusForbidden},
		{string(models.UserRoleUser), http.StatusForbidden},
		{string(models.UserRoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		r := gin.New()
		r.GET("/admin", withRole(tt.role), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })
		w := serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, tt.want, w.Code, "role %q", tt.role)
		if tt.want == http.StatusForbidden {
			assert.Equal(t, "FORBIDDEN", errorCode(t, w))
		}
	}
}

func TestI18nMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware("en"))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, utils.GetLangFromContext(c)) })

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"zh-TW,zh;q=0.9,en;q=0.8", "zh_TW"},
		{"fr-FR,en-GB;q=0.8", "en"},
		{"de", "en"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/lang", nil)
		req.Header.Set("Accept-Language", tt.header)
		assert.Equal(t, tt.want, serve(r, req).Body.String(), tt.header)
	}

	r = gin.New()
	r.Use(I18nMiddleware("xx"))
	r.GET("/lang", func(c *gin.Context) { c.String(http.StatusOK, utils.GetLangFromContext(c)) })
	assert.Equal(t, "en", serve(r, httptest.NewRequest(http.MethodGet, "/lang", nil)).Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req)
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	w := request("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
	assert.Equal(t, http.StatusOK, request("10.0.0.2").Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(rate.Limit(1), 1)
	limiter.now = func() time.Time { return now }

	limiter.getVisitor("10.0.0.1")
	now = now.Add(time.Minute)
	limiter.getVisitor("10.0.0.2")

	now = now.Add(limiter.idle)
	limiter.cleanupVisitors()

	limiter.mtx.Lock()
	defer limiter.mtx.Unlock()
	assert.NotContains(t, limiter.visitors, "10.0.0.1")
	assert.Contains(t, limiter.visitors, "10.0.0.2")
}

func TestMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	r := gin.New()
	r.Use(metrics.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/items/2", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/items/:id", "GET", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("unmatched", "GET", "404")))
}

func TestAuditLogMiddleware(t *testing.T) {
	store := memory.NewStore()
	productID := uuid.New()
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", userID.String()) })
	recorder := NewAuditRecorder(store, 16)
	r.Use(AuditLogMiddleware(recorder))
	r.POST("/admin/products/block/:id", func(c *gin.Context) {
		c.PostForm("note")
		c.Status(http.StatusOK)
	})
	r.GET("/admin/products/list", func(c *gin.Context) { c.Status(http.StatusOK) })

	form := url.Values{"note": {"spring sale"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/products/block/"+productID.String(), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	serve(r, req)
	serve(r, httptest.NewRequest(http.MethodGet, "/admin/products/list", nil))

	require.NoError(t, recorder.Close(context.Background()))

	entries, err := store.Audits().FindByResource(context.Background(), "products", productID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "POST /admin/products/block/"+productID.String(), entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
	assert.Equal(t, "spring sale", entry.NewValues["note"])
	assert.NotContains(t, entry.NewValues, "password")
	assert.EqualValues(t, http.StatusOK, entry.NewValues["status"])
}

func TestAuditRecorderDrainsOnClose(t *testing.T) {
	store := memory.NewStore()
	recorder := NewAuditRecorder(store, 100)
	productID := uuid.New()

	for i := 0; i < 50; i++ {
		recorder.Record(&models.AuditLog{Action: "POST /admin/products/block", ResourceType: "products", ResourceID: &productID})
	}
	require.NoError(t, recorder.Close(context.Background()))

	entries, err := store.Audits().FindByResource(context.Background(), "products", productID)
	require.NoError(t, err)
	assert.Len(t, entries, 50)

	// Entries recorded after Close are dropped, and closing twice is harmless
	recorder.Record(&models.AuditLog{Action: "late", ResourceType: "products", ResourceID: &productID})
	require.NoError(t, recorder.Close(context.Background()))
	entries, err = store.Audits().FindByResource(context.Background(), "products", productID)
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}

func TestAuditRecorderDropsWhenQueueIsFull(t *testing.T) {
	store := memory.NewStore()
	recorder := &AuditRecorder{store: store, entries: make(chan *models.AuditLog, 1), done: make(chan struct{})}

	// No worker yet, so the second entry finds the queue full
	recorder.Record(&models.AuditLog{Action: "first"})
	recorder.Record(&models.AuditLog{Action: "second"})
	assert.Len(t, recorder.entries, 1)

	go recorder.run()
	require.NoError(t, recorder.Close(context.Background()))
}

func TestAuditRecorderCloseHonoursDeadline(t *testing.T) {
	recorder := &AuditRecorder{store: memory.NewStore(), entries: make(chan *models.AuditLog, 1), done: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, recorder.Close(ctx), context.Canceled)
}

func TestExtractResource(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "products", extractResourceType("/admin/products/block/"+id.String()))
	assert.Equal(t, "register", extractResourceType("/register"))
	assert.Equal(t, "unknown", extractResourceType("/"))
	assert.Equal(t, id, extractResourceID("/admin/products/editProduct/edit/"+id.String()))
	assert.Equal(t, uuid.Nil, extractResourceID("/admin/products/list"))
}
