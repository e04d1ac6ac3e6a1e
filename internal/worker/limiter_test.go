package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different domain should also work
	if err := limiter.Wait(ctx, "http://google.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	url := "http://example.com"
	if !limiter.Allow(url) {
		t.Fatal("expected first request to pass")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected error when the context ends before a token is available")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.com"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 is consumed
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("http://other.com") {
		t.Errorf("expected allow for other domain")
	}
}

func TestLimiter_AllowKey(t *testing.T) {
	limiter := NewLimiter(1, 2)

	if !limiter.AllowKey("10.0.0.1") || !limiter.AllowKey("10.0.0.1") {
		t.Fatal("expected burst of 2 to pass")
	}
	if limiter.AllowKey("10.0.0.1") {
		t.Error("expected third request to be limited")
	}
	if !limiter.AllowKey("10.0.0.2") {
		t.Error("expected other client to pass")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetDomainRate("slow.com", 1, 1)

	url := "http://slow.com/page"
	if !limiter.Allow(url) {
		t.Fatal("expected first request to pass")
	}
	if limiter.Allow(url) {
		t.Error("expected second request to be limited by the override")
	}
}

func TestLimiter_Prune(t *testing.T) {
	limiter := NewLimiter(10, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.AllowKey("old")
	now = now.Add(10 * time.Minute)
	limiter.AllowKey("fresh")

	if n := limiter.Prune(5 * time.Minute); n != 1 {
		t.Errorf("expected 1 pruned key, got %d", n)
	}
	if limiter.Len() != 1 {
		t.Errorf("expected 1 remaining key, got %d", limiter.Len())
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"http://example.com/foo", "example.com", false},
		{"https://sub.example.com:8080/bar", "sub.example.com:8080", false},
		{"://bad", "", true},
	}

	for _, tt := range tests {
		got, err := extractDomain(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractDomain(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
