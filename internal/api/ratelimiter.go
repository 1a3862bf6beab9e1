package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/eugenenazirov/cabinet-calculator/internal/metrics"
)

// rateLimiter admits a request or reports how long the caller should wait.
type rateLimiter interface {
	Admit() (ok bool, retryAfter time.Duration)
}

// tokenBucket is the rate.Limiter backed rateLimiter built from the rate_limit config.
type tokenBucket struct {
	limiter *rate.Limiter
}

// newTokenBucket returns nil when rps or burst is not positive, which disables limiting.
func newTokenBucket(rps float64, burst int) rateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (b *tokenBucket) Admit() (bool, time.Duration) {
	now := time.Now()
	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// retryAfterSeconds rounds d up to whole seconds, never below one.
func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := limiter.Admit()
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		metrics.RecordRateLimited()
		w.Header().Set("Retry-After", retryAfterSeconds(wait))
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
