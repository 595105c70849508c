package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "middleware-test-secret"})
	os.Exit(m.Run())
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		id, ok := UserID(ctx)
		if !ok {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		utils.Success(ctx, gin.H{"id": id, "name": ctx.GetString(ContextUserNameKey)})
	})
	return r
}

func get(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var resp utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthRequired_Rejects(t *testing.T) {
	r := protectedRouter()
	expired, err := utils.GenerateToken(7, "alice", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"no header", "", 40101},
		{"wrong scheme", "Basic abc", 40102},
		{"empty token", "Bearer   ", 40103},
		{"garbage", "Bearer not-a-jwt", 40105},
		{"expired", "Bearer " + expired, 40105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "/me", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, http.StatusUnauthorized, resp.Status)
		})
	}
}

func TestAuthRequired_Accepts(t *testing.T) {
	r := protectedRouter()
	token, err := utils.GenerateToken(7, "alice", time.Hour)
	require.NoError(t, err)

	w := get(r, "/me", "Bearer "+token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"success","data":{"id":7,"name":"alice"}}`, w.Body.String())
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	r := protectedRouter()
	token, err := utils.GenerateToken(8, "bob", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	w := get(r, "/me", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40104, decode(t, w).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(2), func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })

	first := get(r, "/ping", "")
	second := get(r, "/ping", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, 42901, decode(t, second).Code)
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(2), func(ctx *gin.Context) { ctx.String(http.StatusOK, "pong") })

	for _, addr := range []string{"198.51.100.1:1000", "198.51.100.2:1000"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestLimiterSet_ExpiresIdleBuckets(t *testing.T) {
	set := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1}
	now := time.Now()

	assert.True(t, set.allow("a", now))
	assert.Len(t, set.limiters, 1)

	set.allow("b", now.Add(limiterIdleTTL+time.Second))
	_, ok := set.limiters["a"]
	assert.False(t, ok)
}

func TestMetrics_CountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/posts/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	get(r, "/posts/1", "")
	get(r, "/posts/2", "")
	get(r, "/missing", "")

	count, err := testutil.GatherAndCount(reg, "blog_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP blog_http_requests_total HTTP requests by method, route and status.
# TYPE blog_http_requests_total counter
blog_http_requests_total{method="GET",route="/posts/:id",status="200"} 2
blog_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "blog_http_requests_total"))
}
