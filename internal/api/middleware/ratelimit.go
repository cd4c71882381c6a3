package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"golang.org/x/time/rate"
)

// RateLimitedMessage is the body of a 429 response.
const RateLimitedMessage = "Too many requests, please try again later."

// idleLimiterTTL is how long an unused per-client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// LimitRecorder counts rate-limited requests.
type LimitRecorder interface {
	RateLimited(route string)
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token bucket. The client IP is taken from
// RemoteAddr, so chi's RealIP middleware must run first behind a proxy.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	recorder LimitRecorder
	now      func() time.Time

	mu          sync.Mutex
	clients     map[string]*clientLimiter
	lastCleanup time.Time
}

// NewRateLimiter allows requestsPerMinute requests per client, all of which
// may arrive as one burst. recorder may be nil.
func NewRateLimiter(requestsPerMinute int, recorder LimitRecorder) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return &RateLimiter{
		limit:       rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds()),
		burst:       requestsPerMinute,
		recorder:    recorder,
		now:         time.Now,
		clients:     make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
	}
}

// Limit rejects requests over the client's budget with 429 and Retry-After.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		limiter := rl.limiterFor(key)

		reservation := limiter.ReserveN(rl.now(), 1)
		if delay := reservation.DelayFrom(rl.now()); delay > 0 {
			reservation.CancelAt(rl.now())

			retryAfter := int(delay.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			if rl.recorder != nil {
				rl.recorder.RateLimited(r.URL.Path)
			}
			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				"path", r.URL.Path,
				"retry_after", retryAfter)

			shared.RespondWithError(w, r, http.StatusTooManyRequests, RateLimitedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > idleLimiterTTL {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > idleLimiterTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastCleanup = now
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
