package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"solana-sandwich-lab/internal/observability"
)

var fastRetry = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

// leaderServer answers getSlotLeaders with "L0".."L<limit-1>" after failing
// the first failures requests with status.
func leaderServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failures {
			w.WriteHeader(status)
			return
		}

		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		limit := int(req.Params[1].(float64))
		leaders := make([]string, limit)
		for i := range leaders {
			leaders[i] = "L" + string(rune('0'+i))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  leaders,
		})
	}))
	t.Cleanup(server.Close)

	return server, &attempts
}

func TestHTTPClient_RetriesRateLimit(t *testing.T) {
	server, attempts := leaderServer(t, 2, http.StatusTooManyRequests)
	client := NewHTTPClient(server.URL, WithRetryPolicy(fastRetry))

	leaders, err := client.GetSlotLeaders(context.Background(), 1000, 3)
	if err != nil {
		t.Fatalf("GetSlotLeaders: %v", err)
	}
	if len(leaders) != 3 || leaders[2] != "L2" {
		t.Errorf("unexpected leaders: %v", leaders)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetryStatuses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantAttempts int32
	}{
		{"server error retried", http.StatusBadGateway, 4},
		{"rate limit retried", http.StatusTooManyRequests, 4},
		{"bad request not retried", http.StatusBadRequest, 1},
		{"forbidden not retried", http.StatusForbidden, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, attempts := leaderServer(t, 100, tt.status)
			client := NewHTTPClient(server.URL, WithRetryPolicy(fastRetry))

			_, err := client.GetSlotLeaders(context.Background(), 1, 1)
			if err == nil {
				t.Fatal("expected error")
			}
			var se *statusError
			if !errors.As(err, &se) || se.code != tt.status {
				t.Errorf("expected status %d in error chain, got %v", tt.status, err)
			}
			if attempts.Load() != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, attempts.Load())
			}
		})
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid slot range: leader schedule for epoch 900 is unavailable",
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryPolicy(fastRetry))
	_, err := client.GetSlotLeaders(context.Background(), 1, 1)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T %v", err, err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
	if attempts.Load() != 1 {
		t.Errorf("rpc errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server, _ := leaderServer(t, 100, http.StatusServiceUnavailable)
	client := NewHTTPClient(server.URL, WithRetryPolicy(RetryPolicy{
		MaxRetries: 10, BaseDelay: time.Hour, MaxDelay: time.Hour,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetSlotLeaders(ctx, 1, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHTTPClient_GetSlotLeaders_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.JSONRPC != "2.0" || req.Method != "getSlotLeaders" {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Params) != 2 || req.Params[0].(float64) != 1000 || req.Params[1].(float64) != 2 {
			t.Errorf("unexpected params: %v", req.Params)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  []string{"LeaderA", "LeaderB"},
		})
	}))
	defer server.Close()

	leaders, err := NewHTTPClient(server.URL).GetSlotLeaders(context.Background(), 1000, 2)
	if err != nil {
		t.Fatalf("GetSlotLeaders: %v", err)
	}
	if len(leaders) != 2 || leaders[1] != "LeaderB" {
		t.Errorf("unexpected leaders: %v", leaders)
	}
}

func TestHTTPClient_GetSlotLeaders_LimitOutOfRange(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:0")

	for _, limit := range []int{0, -1, MaxSlotLeadersLimit + 1} {
		if _, err := client.GetSlotLeaders(context.Background(), 1, limit); err == nil {
			t.Errorf("expected error for limit %d", limit)
		}
	}
}

func TestHTTPClient_RecordsLatency(t *testing.T) {
	server, _ := leaderServer(t, 0, http.StatusOK)

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	client := NewHTTPClient(server.URL, WithMetrics(m))

	if _, err := client.GetSlotLeaders(context.Background(), 1, 1); err != nil {
		t.Fatalf("GetSlotLeaders: %v", err)
	}
	if n := testutil.CollectAndCount(m.RPCCallLatency); n != 1 {
		t.Errorf("expected 1 latency series, got %d", n)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tt := range tests {
		if got := p.delay(tt.attempt); got != tt.want {
			t.Errorf("delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestHTTPClient_BackoffHonorsRetryAfter(t *testing.T) {
	c := NewHTTPClient("http://unused", WithRetryPolicy(RetryPolicy{
		MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 3 * time.Second,
	}))

	if got := c.backoff(1, &statusError{code: 429, retryAfter: 2 * time.Second}); got != 2*time.Second {
		t.Errorf("expected Retry-After 2s, got %v", got)
	}
	if got := c.backoff(1, &statusError{code: 429, retryAfter: time.Minute}); got != 3*time.Second {
		t.Errorf("expected Retry-After capped at 3s, got %v", got)
	}
	if got := c.backoff(2, errors.New("connection reset")); got != 200*time.Millisecond {
		t.Errorf("expected plain backoff 200ms, got %v", got)
	}

	for in, want := range map[string]time.Duration{"": 0, "5": 5 * time.Second, "-1": 0, "Wed, 21 Oct 2015 07:28:00 GMT": 0} {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
