package auth_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"admissions-service/internal/auth"
	"admissions-service/internal/user"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter(tokens *auth.TokenService) chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens, logger))
		r.Use(auth.RequireAdmin(logger))
		r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			claims, _ := auth.ClaimsFromContext(r.Context())
			w.Write([]byte(claims.Username))
		})
	})
	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/public", func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
				w.Write([]byte(claims.Username))
				return
			}
			w.Write([]byte("anonymous"))
		})
	})
	return router
}

func TestMiddleware(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tokens := newTokens(clock)
	router := adminRouter(tokens)

	issue := func(t *testing.T, role user.Role) string {
		t.Helper()
		token, err := tokens.Issue(1, "someone-"+string(role), role)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "NoHeader", wantStatus: http.StatusUnauthorized, wantBody: "access token required"},
		{name: "WrongScheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantBody: "access token required"},
		{name: "EmptyBearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantBody: "access token required"},
		{name: "Garbage", header: "Bearer garbage", wantStatus: http.StatusUnauthorized, wantBody: "invalid or expired token"},
		{name: "User", header: "Bearer " + issue(t, user.RoleUser), wantStatus: http.StatusForbidden, wantBody: "admin access required"},
		{name: "Applicant", header: "Bearer " + issue(t, user.RoleApplicant), wantStatus: http.StatusForbidden, wantBody: "admin access required"},
		{name: "Admin", header: "Bearer " + issue(t, user.RoleAdmin), wantStatus: http.StatusOK, wantBody: "someone-admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	t.Run("ExpiredToken", func(t *testing.T) {
		token := issue(t, user.RoleAdmin)
		expiredClock := &fakeClock{t: clock.t.Add(25 * time.Hour)}
		expiredRouter := adminRouter(newTokens(expiredClock))

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		expiredRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("RequireAdminWithoutClaims", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		handler := auth.RequireAdmin(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("OptionalAuth", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
		assert.Equal(t, "anonymous", w.Body.String())

		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())

		req = httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, user.RoleApplicant))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "someone-applicant", w.Body.String())
	})
}
