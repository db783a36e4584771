package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
	"github.com/hashbridge/ledger-gateway/internal/httputil"
	"github.com/hashbridge/ledger-gateway/pkg/logger"
)

// RateLimiter throttles requests per caller. Authenticated requests are
// keyed by user ID, anonymous ones by remote address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewRateLimiter allows requestsPerSecond sustained with the given burst.
func NewRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = lim
	}
	return lim
}

// Handler enforces the limit and answers 429 when exceeded.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if p, ok := GetPrincipal(r.Context()); ok {
			key = p.UserID
		}

		if !rl.limiter(key).Allow() {
			rl.log.WithField("key", key).Warn("rate limit exceeded")
			httputil.WriteError(w, svcerr.TooManyRequests("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
