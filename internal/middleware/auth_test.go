package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authedHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var gotUserID string
	m := NewAuthMiddleware("secret", nil, []string{"/health"}, func(r *http.Request) bool {
		return strings.HasSuffix(r.URL.Path, "/live")
	})
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &gotUserID
}

func TestAuthAcceptsValidToken(t *testing.T) {
	h, gotUserID := authedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "u1", time.Hour))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *gotUserID != "u1" {
		t.Fatalf("expected user id on context, got %q", *gotUserID)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	h, _ := authedHandler(t)

	for name, setup := range map[string]func(*http.Request){
		"no header":    func(r *http.Request) {},
		"bad scheme":   func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"wrong secret": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signToken(t, "other", "u1", time.Hour)) },
		"expired":      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signToken(t, "secret", "u1", -time.Minute)) },
	} {
		req := httptest.NewRequest(http.MethodGet, "/games", nil)
		setup(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthSkipsConfiguredPaths(t *testing.T) {
	h, _ := authedHandler(t)

	for _, path := range []string{"/health", "/games/g1/live"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected skip, got %d", path, rec.Code)
		}
	}
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	h, gotUserID := authedHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/games?token="+signToken(t, "secret", "u2", time.Hour), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || *gotUserID != "u2" {
		t.Fatalf("expected query token to authenticate, got %d user %q", rec.Code, *gotUserID)
	}
}
