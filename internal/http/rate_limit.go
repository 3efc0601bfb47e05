package httpx

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateDecision is the outcome of one limiter check.
type RateDecision struct {
	Allowed bool
	Count   int
	Reset   time.Time
}

// RateLimiter counts requests per key in fixed windows. Implementations fail open.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) RateDecision
	Close()
}

// rateClass names a budget. Keys are namespaced by class so reads and writes
// from the same user never share a counter.
type rateClass string

const (
	rateSignup  rateClass = "signup"
	rateLogin   rateClass = "login"
	rateRefresh rateClass = "refresh"
	rateStream  rateClass = "session_stream"
	rateUpload  rateClass = "avatar_upload"
	rateRead    rateClass = "read"
	rateWrite   rateClass = "write"
)

type ratePolicy struct {
	limit  int
	window time.Duration
}

var ratePolicies = map[rateClass]ratePolicy{
	rateSignup:  {limit: 5, window: time.Minute},
	rateLogin:   {limit: 12, window: time.Minute},
	rateRefresh: {limit: 30, window: time.Minute},
	rateStream:  {limit: 30, window: 30 * time.Second},
	rateUpload:  {limit: 10, window: time.Minute},
	rateRead:    {limit: 240, window: time.Minute},
	rateWrite:   {limit: 60, window: time.Minute},
}

// methodClass budgets CRM reads and mutations separately.
func methodClass(req *http.Request) rateClass {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return rateRead
	default:
		return rateWrite
	}
}

func fixedClass(class rateClass) func(*http.Request) rateClass {
	return func(*http.Request) rateClass { return class }
}

// throttle rejects the request with 429 once its bucket is spent. keyFn may
// return "" to fall back to the client address.
func (r *Router) throttle(classify func(*http.Request) rateClass, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		class := classify(req)
		policy, ok := ratePolicies[class]
		if r.limiter == nil || !ok || policy.limit <= 0 {
			next(w, req)
			return
		}
		key := ""
		if keyFn != nil {
			key = keyFn(req)
		}
		if key == "" {
			key = ipRateKey(req)
		}
		decision := r.limiter.Allow(req.Context(), string(class)+"|"+key, policy.limit, policy.window)
		setRateHeaders(w, policy.limit, decision)
		if !decision.Allowed {
			r.metrics.limited(class)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

// userRoute authenticates the caller and throttles on their user id.
func (r *Router) userRoute(classify func(*http.Request) rateClass, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.throttle(classify, userRateKey, next))
}

func userRateKey(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.UserID != "" {
		return "user:" + info.UserID
	}
	return ""
}

// ipRateKey uses the socket address. Forwarded headers are ignored because
// clients control them.
func ipRateKey(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func setRateHeaders(w http.ResponseWriter, limit int, d RateDecision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(limit-d.Count, 0)))
	if !d.Reset.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	}
	if !d.Allowed && !d.Reset.IsZero() {
		h.Set("Retry-After", strconv.Itoa(max(int(time.Until(d.Reset).Seconds()), 1)))
	}
}

const memorySweepEvery = 5 * time.Minute

// memoryRateLimiter keeps windows in process. Expired windows are swept from
// Allow, so there is no background goroutine to stop.
type memoryRateLimiter struct {
	mu        sync.Mutex
	windows   map[string]RateDecision
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter returns a single-instance limiter, used when Redis is not configured.
func NewMemoryRateLimiter() RateLimiter {
	return &memoryRateLimiter{windows: make(map[string]RateDecision), now: time.Now}
}

func (m *memoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) RateDecision {
	if window <= 0 {
		window = time.Minute
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.After(m.nextSweep) {
		for k, w := range m.windows {
			if !now.Before(w.Reset) {
				delete(m.windows, k)
			}
		}
		m.nextSweep = now.Add(memorySweepEvery)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.Reset) {
		w = RateDecision{Reset: now.Add(window)}
	}
	w.Count++
	w.Allowed = w.Count <= limit
	m.windows[key] = w
	return w
}

func (m *memoryRateLimiter) Close() {}
