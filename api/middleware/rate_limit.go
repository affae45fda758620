package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are dropped on the next new client.
type RateLimiter struct {
	mutex    sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	ttl      time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(r rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
		ttl:      ttl,
	}
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := l.now()
			limiter := l.limiter(c.RealIP(), now)

			reservation := limiter.ReserveN(now, 1)
			if !reservation.OK() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			if delay := reservation.DelayFrom(now); delay > 0 {
				reservation.CancelAt(now)
				seconds := int(math.Ceil(delay.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

// Len reports how many clients are currently tracked.
func (l *RateLimiter) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.limiters)
}

func (l *RateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if v, ok := l.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l.cleanup(now)
	v := &visitor{limiter: rate.NewLimiter(l.rate, l.burst), lastSeen: now}
	l.limiters[ip] = v
	return v.limiter
}

func (l *RateLimiter) cleanup(now time.Time) {
	if l.ttl == 0 {
		return
	}
	cutoff := now.Add(-l.ttl)
	for ip, v := range l.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

func (l *RateLimiter) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}
