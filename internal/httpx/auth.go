package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rdyatmika/go-storefront-api/internal/orders"
	"github.com/rdyatmika/go-storefront-api/internal/redisx"
)

type ctxKey int

const identityKey ctxKey = 0

// sessionRecord is written to redis by the auth service at login; this
// layer only reads it.
type sessionRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type Auth struct {
	Redis *redis.Client
}

// Authenticate resolves the bearer token to a session and puts the
// caller identity on the request context. 401 when the token is missing
// or unknown.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		raw, err := a.Redis.Get(r.Context(), fmt.Sprintf(redisx.KeySession, token)).Result()
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
			return
		}
		var sess sessionRecord
		if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.UserID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
			return
		}
		ident := orders.Identity{UserID: sess.UserID, Role: sess.Role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, ident)))
	})
}

// RequireAdmin guards admin-only routes; it assumes Authenticate ran.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerIdentity(r).IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CallerIdentity returns the identity set by Authenticate; zero value
// when absent.
func CallerIdentity(r *http.Request) orders.Identity {
	ident, _ := r.Context().Value(identityKey).(orders.Identity)
	return ident
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
