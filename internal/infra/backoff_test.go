package infra

import (
	"testing"
	"time"
)

func TestFixedDelay(t *testing.T) {
	p := FixedDelay{Wait: 3 * time.Second}

	for _, attempt := range []int{0, 1, 5, 100} {
		if got := p.Delay(attempt); got != 3*time.Second {
			t.Errorf("Delay(%d) = %v, want 3s", attempt, got)
		}
	}
	if p.MaxRetries() != 0 {
		t.Error("FixedDelay should be unbounded by default")
	}

	if got := (FixedDelay{}).Delay(0); got != DefaultReconnectDelay {
		t.Errorf("zero-value Delay = %v, want %v", got, DefaultReconnectDelay)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},  // max 60s
		{100, 60 * time.Second}, // still max 60s
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestExponentialBackoff_CustomBounds(t *testing.T) {
	p := ExponentialBackoff{Base: 3 * time.Second, Max: 20 * time.Second, Retries: 5}

	if got := p.Delay(0); got != 3*time.Second {
		t.Errorf("Delay(0) = %v, want 3s", got)
	}
	if got := p.Delay(2); got != 12*time.Second {
		t.Errorf("Delay(2) = %v, want 12s", got)
	}
	if got := p.Delay(3); got != 20*time.Second {
		t.Errorf("Delay(3) = %v, want cap 20s", got)
	}
	if p.MaxRetries() != 5 {
		t.Errorf("MaxRetries() = %d, want 5", p.MaxRetries())
	}
}
