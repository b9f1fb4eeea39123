package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitBurstThenReject(t *testing.T) {
	handler := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests = %v, want first two allowed", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewRateLimiter(1, 1)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request from first ip must pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("second request from same ip must be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("a different ip has its own bucket")
	}
}
