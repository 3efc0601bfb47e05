package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := &memoryRateLimiter{windows: make(map[string]RateDecision), now: func() time.Time { return now }}

	for i := 1; i <= 2; i++ {
		if d := rl.Allow(context.Background(), "k", 2, time.Minute); !d.Allowed || d.Count != i {
			t.Fatalf("call %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow(context.Background(), "k", 2, time.Minute); d.Allowed {
		t.Fatalf("third call should be limited")
	}

	now = now.Add(time.Minute)
	if d := rl.Allow(context.Background(), "k", 2, time.Minute); !d.Allowed || d.Count != 1 {
		t.Fatalf("expected a fresh window, got %+v", d)
	}
}

func TestMemoryLimiterSweepsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rl := &memoryRateLimiter{windows: make(map[string]RateDecision), now: func() time.Time { return now }}
	rl.Allow(context.Background(), "a", 5, time.Minute)

	now = now.Add(memorySweepEvery + time.Second)
	rl.Allow(context.Background(), "b", 5, time.Minute)
	if _, ok := rl.windows["a"]; ok {
		t.Fatalf("expired window should be swept")
	}
}

func TestMethodClassSplitsReadsAndWrites(t *testing.T) {
	cases := map[string]rateClass{
		http.MethodGet:    rateRead,
		http.MethodHead:   rateRead,
		http.MethodPost:   rateWrite,
		http.MethodPut:    rateWrite,
		http.MethodDelete: rateWrite,
	}
	for method, want := range cases {
		req := httptest.NewRequest(method, "/organisations", nil)
		if got := methodClass(req); got != want {
			t.Fatalf("%s: got %s want %s", method, got, want)
		}
	}
}

func TestThrottleNamespacesKeysByClass(t *testing.T) {
	stub := &rateLimiterStub{}
	r := &Router{limiter: stub}
	h := r.throttle(methodClass, func(*http.Request) string { return "user:u1" }, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(method, "/tasks", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: unexpected status %d", method, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") == "" {
			t.Fatalf("%s: missing rate headers", method)
		}
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.calls) != 2 {
		t.Fatalf("expected two limiter calls, got %d", len(stub.calls))
	}
	if stub.calls[0].key != "read|user:u1" || stub.calls[0].limit != ratePolicies[rateRead].limit {
		t.Fatalf("unexpected read call %+v", stub.calls[0])
	}
	if stub.calls[1].key != "write|user:u1" || stub.calls[1].limit != ratePolicies[rateWrite].limit {
		t.Fatalf("unexpected write call %+v", stub.calls[1])
	}
}

func TestRouterServesOwnMetrics(t *testing.T) {
	r := NewRouter(newTestLogger(), Services{}, nil, nil, &rateLimiterStub{}, nil)
	defer r.Close()
	second := NewRouter(newTestLogger(), Services{}, nil, nil, &rateLimiterStub{}, nil)
	defer second.Close()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cornerstone_api_http_requests_total") {
		t.Fatalf("request counter missing from metrics output")
	}
}
