package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultRateLimit allows 10 requests per second per client. Drag-over events
// arrive in bursts while a pointer moves, so the limit is deliberately looser
// than a CRUD API would use.
const DefaultRateLimit = "10-S"

// RateLimit returns rate limiting middleware backed by Redis, keyed by
// authenticated user when available and client IP otherwise.
func RateLimit(redisClient *redis.Client, rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		rate = DefaultRateLimit
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	instance := limiter.New(store, parsed)
	keyGetter := func(r *http.Request) string {
		if user := UserFromContext(r); user != nil {
			return "user:" + user.ID.String()
		}
		return "ip:" + clientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}

// clientIP extracts the client address, trusting X-Forwarded-For only for its
// first hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
