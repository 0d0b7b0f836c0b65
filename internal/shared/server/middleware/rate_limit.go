package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"papermind-backend/internal/shared/metrics"
	"papermind-backend/internal/shared/server/respond"
)

// Quota classes. Routes not mapped with Route fall under QuotaGeneral.
const (
	QuotaGeneral = "general"
	QuotaUpload  = "upload"
	QuotaAsk     = "ask"
)

// Quota admits Burst requests at once and PerSecond sustained. A zero
// field disables the quota.
type Quota struct {
	PerSecond float64
	Burst     int
}

func (q Quota) interval() time.Duration {
	return time.Duration(float64(time.Second) / q.PerSecond)
}

// Throttle enforces per-user quotas by route. Each caller and class pair
// tracks the instant its allowance is fully drained (GCRA).
type Throttle struct {
	mu      sync.Mutex
	now     func() time.Time
	quotas  map[string]Quota
	routes  map[string]string
	drained map[throttleKey]time.Time
}

type throttleKey struct {
	caller string
	class  string
}

func NewThrottle(now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{
		now:     now,
		quotas:  make(map[string]Quota),
		routes:  make(map[string]string),
		drained: make(map[throttleKey]time.Time),
	}
}

// Quota sets the allowance for class.
func (t *Throttle) Quota(class string, q Quota) *Throttle {
	t.mu.Lock()
	t.quotas[class] = q
	t.mu.Unlock()
	return t
}

// Route charges requests matching method and the gin route pattern to class.
func (t *Throttle) Route(method, pattern, class string) *Throttle {
	t.mu.Lock()
	t.routes[method+" "+pattern] = class
	t.mu.Unlock()
	return t
}

// Handler rejects over-quota requests with 429 and a Retry-After header.
// It must run after Auth so the caller is the user id.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := UserIDFromContext(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		wait := t.reserve(caller, t.classFor(c.Request.Method, c.FullPath()))
		if wait <= 0 {
			c.Next()
			return
		}

		metrics.IncRequestThrottled()
		c.Header("Retry-After", strconv.FormatInt(int64((wait+time.Second-1)/time.Second), 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": wait.Milliseconds(),
		})
	}
}

func (t *Throttle) classFor(method, pattern string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if class, ok := t.routes[method+" "+pattern]; ok {
		return class
	}
	return QuotaGeneral
}

// reserve takes one request from the caller's allowance and returns zero,
// or returns how long the caller must wait without taking anything.
func (t *Throttle) reserve(caller, class string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotas[class]
	if !ok || q.PerSecond <= 0 || q.Burst <= 0 {
		return 0
	}
	now := t.now()
	key := throttleKey{caller: strings.TrimSpace(caller), class: class}

	start := t.drained[key]
	if start.Before(now) {
		start = now
	}
	next := start.Add(q.interval())
	capacity := time.Duration(q.Burst) * q.interval()
	if over := next.Sub(now) - capacity; over > 0 {
		return over
	}
	t.drained[key] = next
	return 0
}
