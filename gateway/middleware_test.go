package gateway

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/model"
	"chatgate/provider/testutil"
)

func TestChainOrder(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mark("outer"), mark("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestRateLimiterPerAddress(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "other addresses have their own bucket")
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	h := newHarness(t, cfg, nil, testutil.NewScriptedProvider("m", testutil.TextEvents("ok")))

	first := h.post("/api/chat", chatBody(t, "", model.NewUserMessage("hi")))
	assert.Equal(t, http.StatusOK, first.Code)

	second := h.post("/api/chat", chatBody(t, "", model.NewUserMessage("hi")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, second.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{
			name:     "before write",
			path:     "/api/chat",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to process chat request"}`,
		},
		{
			name:     "unknown path",
			path:     "/other",
			handler:  func(w http.ResponseWriter, r *http.Request) { panic(errors.New("boom")) },
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal Server Error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RecoveryMiddleware(tt.handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestRecoveryAfterWriteKeepsResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data: partial\n\n"))
		panic("mid-stream")
	}))
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: partial\n\n", rec.Body.String())
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "ACCESS | "), line)
	assert.Contains(t, line, "method=POST")
	assert.Contains(t, line, "path=/api/chat")
	assert.Contains(t, line, "status=418")
	assert.Contains(t, line, "bytes=15")
	assert.Contains(t, line, "ip=192.0.2.1")
}

func TestResponseWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	require.NoError(t, http.NewResponseController(rw).Flush())
	assert.True(t, rec.Flushed)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"127.0.0.1:5000", "127.0.0.1"},
		{"[::1]:5000", "::1"},
		{"unix", "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}
