package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/quadtask/quadtask/internal/models"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// WithUser returns a request carrying the given user, for tests and internal
// dispatch.
func WithUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, user))
}

// jwksCache fetches and caches the signing key set.
type jwksCache struct {
	mu      sync.Mutex
	url     string
	keys    jwk.Set
	expires time.Time
	ttl     time.Duration
}

func newJWKSCache(url string) *jwksCache {
	return &jwksCache{url: url, ttl: time.Hour}
}

func (c *jwksCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys != nil && time.Now().Before(c.expires) {
		return c.keys, nil
	}
	keys, err := jwk.Fetch(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	c.keys = keys
	c.expires = time.Now().Add(c.ttl)
	return keys, nil
}

// Auth creates authentication middleware that validates bearer JWTs against
// the identity provider's JWKS and places the authenticated user in the
// request context. The token's sub claim identifies the user; non-UUID
// subjects map to a stable derived UUID.
func Auth(issuer, jwksURL string, logger *zap.Logger) func(http.Handler) http.Handler {
	cache := newJWKSCache(jwksURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			ctx := r.Context()
			keys, err := cache.get(ctx)
			if err != nil {
				logger.Error("jwks_fetch_failed", zap.Error(err))
				respondAuthError(w, http.StatusInternalServerError, "Failed to load signing keys")
				return
			}

			token, err := jwt.Parse([]byte(parts[1]),
				jwt.WithKeySet(keys),
				jwt.WithValidate(true),
				jwt.WithIssuer(issuer),
			)
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user := &models.User{ID: subjectUUID(token.Subject())}
			if email, ok := token.Get("email"); ok {
				if s, ok := email.(string); ok {
					user.Email = s
				}
			}
			if name, ok := token.Get("name"); ok {
				if s, ok := name.(string); ok {
					user.Name = s
				}
			}

			next.ServeHTTP(w, WithUser(r, user))
		})
	}
}

// subjectUUID maps a token subject to a user id. UUID subjects pass through;
// anything else hashes to a stable UUID so the same subject always lands on
// the same cache bucket.
func subjectUUID(sub string) uuid.UUID {
	if id, err := uuid.Parse(sub); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sub))
}

func respondAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   http.StatusText(status),
		"message": message,
	})
}
