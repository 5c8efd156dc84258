package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foodrescue/foodrescue/internal/apierror"
	"github.com/foodrescue/foodrescue/internal/ctxkeys"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenLen   = 32
)

// CSRFProtection issues the CSRF token cookie and validates the token on every
// state-changing request that carries a session. It must run after AuthMiddleware.
// Anonymous requests have no session to ride on and fall through to the route,
// which answers 401 where authentication is required; guest routes that still
// need a token (login, register) wrap themselves in RequireCSRF.
func CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := getOrGenerateCSRFToken(w, r)
		r = r.WithContext(ctxkeys.WithCSRFToken(r.Context(), token))

		if isSafeMethod(r.Method) || ctxkeys.User(r.Context()) == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !verifyCSRF(w, r, token) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF validates the token regardless of session, for guest routes
// where a forged request would sign the victim into the attacker's account.
func RequireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !verifyCSRF(w, r, ctxkeys.CSRFToken(r.Context())) {
			return
		}
		next(w, r)
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// verifyCSRF compares the submitted token with the cookie token and writes 403 on mismatch.
func verifyCSRF(w http.ResponseWriter, r *http.Request, token string) bool {
	// Header first (JSON clients), then the multipart form field (photo uploads).
	// Only multipart bodies are parsed here so JSON bodies stay unread.
	submittedToken := r.Header.Get(csrfHeader)
	if submittedToken == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		submittedToken = r.PostFormValue(csrfFormField)
	}

	if validCSRFToken(token, submittedToken) {
		return true
	}

	slog.Warn("csrf validation failed",
		"path", r.URL.Path,
		"method", r.Method,
		"ip", getClientIP(r),
	)
	apierror.Forbidden(w, "invalid csrf token")
	return false
}

// getOrGenerateCSRFToken retrieves existing token or generates new one
func getOrGenerateCSRFToken(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err == nil && cookie.Value != "" && len(cookie.Value) == base64.RawURLEncoding.EncodedLen(csrfTokenLen) {
		return cookie.Value
	}

	token := generateCSRFToken()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	// Readable by scripts so browser clients can echo it in the X-CSRF-Token header
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   isProduction, // Secure flag based on APP_ENV (safer than r.TLS behind load balancers)
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7, // 7 days
	})

	return token
}

// generateCSRFToken creates cryptographically secure random token
func generateCSRFToken() string {
	bytes := make([]byte, csrfTokenLen)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate csrf token: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// validCSRFToken performs constant-time comparison of tokens
func validCSRFToken(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
