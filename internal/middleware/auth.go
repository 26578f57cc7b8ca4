// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hooptrack/backend/pkg/logger"
)

// AuthMiddleware validates bearer tokens and puts the user id on the request
// context.
type AuthMiddleware struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
	skipFunc  func(r *http.Request) bool
}

// NewAuthMiddleware creates an authentication middleware. Requests to
// skipPaths pass through unauthenticated; skipFunc, when non-nil, can skip
// dynamic paths such as websocket upgrades.
func NewAuthMiddleware(secret string, log *logger.Logger, skipPaths []string, skipFunc func(r *http.Request) bool) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{secret: []byte(secret), log: log, skipPaths: skip, skipFunc: skipFunc}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || (m.skipFunc != nil && m.skipFunc(r)) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		userID, err := m.validateToken(token)
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := logger.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	return logger.GetUserID(ctx)
}

func (m *AuthMiddleware) validateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid claims")
	}
	return claims.Subject, nil
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
