package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
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

type authFixture struct {
	router chi.Router
	users  user.Repository
	tokens *auth.TokenService
}

func setupAuth(t *testing.T, allowAdmin bool) *authFixture {
	t.Helper()

	users := user.NewMemoryRepository()
	_, err := user.SeedAdmin(context.Background(), users, "admin", "admin@mtendere.com", "admin123")
	require.NoError(t, err)

	tokens := auth.NewTokenService(testSecret, 24*time.Hour)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler := auth.NewHandler(auth.NewService(users, tokens, allowAdmin), logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &authFixture{router: router, users: users, tokens: tokens}
}

func (f *authFixture) post(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandler_Login(t *testing.T) {
	f := setupAuth(t, false)

	t.Run("ByUsername", func(t *testing.T) {
		w := f.post(t, "/auth/login", map[string]string{"username": "admin", "password": "admin123"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp auth.LoginResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "admin", resp.User.Username)
		assert.Equal(t, user.RoleAdmin, resp.User.Role)

		claims, err := f.tokens.Verify(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, claims.Role)
		assert.Equal(t, resp.User.ID, claims.UserID)
	})

	t.Run("ByEmail", func(t *testing.T) {
		w := f.post(t, "/auth/login", map[string]string{"username": "admin@mtendere.com", "password": "admin123"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := f.post(t, "/auth/login", map[string]string{"username": "admin", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid credentials")
	})

	t.Run("UnknownUser", func(t *testing.T) {
		w := f.post(t, "/auth/login", map[string]string{"username": "ghost", "password": "admin123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		admin, err := f.users.GetByUsername(context.Background(), "admin")
		require.NoError(t, err)
		admin.IsActive = false
		require.NoError(t, f.users.Update(context.Background(), admin))
		t.Cleanup(func() {
			admin.IsActive = true
			_ = f.users.Update(context.Background(), admin)
		})

		w := f.post(t, "/auth/login", map[string]string{"username": "admin", "password": "admin123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MissingFields", func(t *testing.T) {
		w := f.post(t, "/auth/login", map[string]string{"username": "admin"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Register(t *testing.T) {
	t.Run("DefaultsToUserRole", func(t *testing.T) {
		f := setupAuth(t, false)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "jane",
			"email":    "jane@example.com",
			"password": "secret1",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "password")

		var resp auth.RegisterResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "jane", resp.User.Username)
		assert.Equal(t, user.RoleUser, resp.User.Role)

		stored, err := f.users.GetByUsername(context.Background(), "jane")
		require.NoError(t, err)
		assert.True(t, user.CheckPassword(stored.Password, "secret1"))

		login := f.post(t, "/auth/login", map[string]string{"username": "jane", "password": "secret1"})
		assert.Equal(t, http.StatusOK, login.Code)
	})

	t.Run("Applicant", func(t *testing.T) {
		f := setupAuth(t, false)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "appl",
			"email":    "appl@example.com",
			"password": "secret1",
			"role":     "applicant",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Duplicate", func(t *testing.T) {
		f := setupAuth(t, false)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "someone",
			"email":    "admin@mtendere.com",
			"password": "secret1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "user already exists")
	})

	t.Run("AdminRoleBlocked", func(t *testing.T) {
		f := setupAuth(t, false)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "mallory",
			"email":    "mallory@example.com",
			"password": "secret1",
			"role":     "admin",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AdminRoleAllowed", func(t *testing.T) {
		f := setupAuth(t, true)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "second-admin",
			"email":    "second@example.com",
			"password": "secret1",
			"role":     "admin",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		f := setupAuth(t, false)

		cases := map[string]map[string]string{
			"ShortUsername": {"username": "ab", "email": "ab@example.com", "password": "secret1"},
			"BadEmail":      {"username": "abc", "email": "not-an-email", "password": "secret1"},
			"ShortPassword": {"username": "abc", "email": "abc@example.com", "password": "12345"},
			"UnknownRole":   {"username": "abc", "email": "abc@example.com", "password": "secret1", "role": "root"},
			"BlankUsername": {"username": "     ", "email": "blank@example.com", "password": "secret1"},
			"PaddedShort":   {"username": "ab   ", "email": "pad@example.com", "password": "secret1"},
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				w := f.post(t, "/auth/register", payload)
				assert.Equal(t, http.StatusBadRequest, w.Code)
			})
		}

		all, err := f.users.GetAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 1, "only the seeded admin may exist")
	})

	t.Run("TrimsIdentifiers", func(t *testing.T) {
		f := setupAuth(t, false)

		w := f.post(t, "/auth/register", map[string]string{
			"username": "  jane  ",
			"email":    " jane@example.com ",
			"password": "secret1",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		stored, err := f.users.GetByUsername(context.Background(), "jane")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", stored.Email)
	})
}
