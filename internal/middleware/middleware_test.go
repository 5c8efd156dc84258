package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foodrescue/foodrescue/internal/config"
	"github.com/foodrescue/foodrescue/internal/ctxkeys"
	"github.com/foodrescue/foodrescue/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func withUser(r *http.Request, role string) *http.Request {
	user := &model.User{ID: "u1", Name: "Test", Role: role}
	return r.WithContext(ctxkeys.WithUser(r.Context(), user))
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(okHandler)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)

	rec = httptest.NewRecorder()
	h(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/metrics", nil), model.RoleShelter))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(model.RoleShelter, okHandler)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"wrong role", model.RoleRestaurant, http.StatusForbidden},
		{"matching role", model.RoleShelter, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/posts/x/claim", nil)
			if tt.role != "" {
				req = withUser(req, tt.role)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRFProtection(t *testing.T) {
	h := CSRFProtection(http.HandlerFunc(okHandler))

	// GET issues a token cookie
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0]
	assert.Equal(t, csrfCookieName, token.Name)

	// Session POST without header is rejected
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{}`)), model.RoleRestaurant)
	req.AddCookie(token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Session POST with matching header passes
	req = withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{}`)), model.RoleRestaurant)
	req.AddCookie(token)
	req.Header.Set(csrfHeader, token.Value)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Session POST with a different token is rejected
	req = withUser(httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{}`)), model.RoleRestaurant)
	req.AddCookie(token)
	req.Header.Set(csrfHeader, generateCSRFToken())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFProtection_AnonymousReachesRoute(t *testing.T) {
	// The route decides: here it demands a session and answers 401, not a CSRF 403
	h := CSRFProtection(RequireAuth(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/posts/p1/claim", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireCSRF(t *testing.T) {
	h := CSRFProtection(RequireCSRF(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
	req.AddCookie(cookies[0])
	req.Header.Set(csrfHeader, cookies[0].Value)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("login|1.2.3.4")
	assert.True(t, ok)
	now = now.Add(20 * time.Second)
	ok, _ = rl.Allow("login|1.2.3.4")
	assert.True(t, ok)

	ok, retryAfter := rl.Allow("login|1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retryAfter)

	// Other scopes and other clients keep their own budget
	ok, _ = rl.Allow("register|1.2.3.4")
	assert.True(t, ok)
	ok, _ = rl.Allow("login|5.6.7.8")
	assert.True(t, ok)

	// The first hit leaves the window
	now = now.Add(41 * time.Second)
	ok, _ = rl.Allow("login|1.2.3.4")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.hits)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit("login", NewRateLimiter(1, time.Minute))(okHandler)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"TOO_MANY_REQUESTS"`)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:4242"
	assert.Equal(t, "2001:db8::1", getClientIP(req))

	req.Header.Set("X-Real-IP", " 10.1.1.1 ")
	assert.Equal(t, "10.1.1.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	assert.Equal(t, "9.9.9.9", getClientIP(req))
}

func TestNormalizePath(t *testing.T) {
	id := "0b6e2a4c-8f0e-4c1e-9a77-3c5d2b1f9e10"
	assert.Equal(t, "/api/posts/{id}/claim", normalizePath("/api/posts/"+id+"/claim"))
	assert.Equal(t, "/api/posts/{id}/photo", normalizePath("/api/posts/"+id+"/photo"))
	assert.Equal(t, "/api/posts/restaurant", normalizePath("/api/posts/restaurant"))
	assert.Equal(t, "/healthz", normalizePath("/healthz"))
}

func TestSecurityHeaders(t *testing.T) {
	h := Chain(http.HandlerFunc(okHandler),
		Config(&config.Config{AppEnv: "production"}),
		SecurityHeaders,
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	h = Chain(http.HandlerFunc(okHandler),
		Config(&config.Config{AppEnv: "development"}),
		SecurityHeaders,
	)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestMetricsAndLoggingKeepStatus(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}), RequestLogging, Metrics)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/posts/abc/claim", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
