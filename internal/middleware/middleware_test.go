package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	t.Run("AllowedOrigin", func(t *testing.T) {
		handler := CORS([]string{"http://localhost:5173"})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		handler := CORS([]string{"http://localhost:5173"})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Wildcard", func(t *testing.T) {
		handler := CORS([]string{"*"})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://anything.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://anything.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		called := false
		handler := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodOptions, "/api/applications", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called)
	})
}

func TestRateLimiter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rl := NewRateLimiter(1, 2, logger)
	rl.now = func() time.Time { return now }
	handler := rl.Middleware(okHandler())

	request := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1:3333"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, request("10.0.0.2:1111"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, request("10.0.0.1:4444"))

	now = now.Add(10 * time.Minute)
	request("10.0.0.3:1111")
	rl.mu.Lock()
	assert.Len(t, rl.visitors, 1, "idle buckets are swept")
	rl.mu.Unlock()
}
