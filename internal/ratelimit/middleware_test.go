package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Cart mutation routes are limited per session, keyed by the session header.
func sessionKey(r *http.Request) string {
	return r.Header.Get("X-Session-ID")
}

func newLimitedMutationRoute(t *testing.T, max int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:cart"},
		Config: Config{
			Key:    sessionKey,
			Window: time.Second,
			Max:    max,
		},
	}
	return handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})), mr
}

func addItemRequest(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.Header.Set("X-Session-ID", sessionID)
	return req
}

func TestMutationLimitPerSession(t *testing.T) {
	route, _ := newLimitedMutationRoute(t, 1)

	rr1 := httptest.NewRecorder()
	route.ServeHTTP(rr1, addItemRequest("sess-a"))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("expected first mutation allowed, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	route.ServeHTTP(rr2, addItemRequest("sess-a"))
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second mutation, got %d", rr2.Code)
	}
	if rr2.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("unexpected limit header: %q", rr2.Header().Get("X-RateLimit-Limit"))
	}
	if rr2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on rejected mutation")
	}
}

func TestSessionsHaveIndependentBuckets(t *testing.T) {
	route, _ := newLimitedMutationRoute(t, 1)

	rr := httptest.NewRecorder()
	route.ServeHTTP(rr, addItemRequest("sess-a"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected sess-a allowed, got %d", rr.Code)
	}

	// A different session must not be throttled by sess-a's bucket.
	rr = httptest.NewRecorder()
	route.ServeHTTP(rr, addItemRequest("sess-b"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected sess-b allowed, got %d", rr.Code)
	}
}

func TestMutationsProceedWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:cart"},
		Config: Config{
			Key:    sessionKey,
			Window: time.Second,
			Max:    1,
		},
	}
	called := false
	handler.OnError = func(error) { called = true }

	route := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	route.ServeHTTP(rr, addItemRequest("sess-a"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected mutation to proceed when limiter store is down, got %d", rr.Code)
	}
	if !called {
		t.Fatal("expected OnError callback to be invoked")
	}
}
