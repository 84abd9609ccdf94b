package infra

import (
	"math"
	"time"
)

const (
	// DefaultReconnectDelay is the fixed wait between feed reconnection attempts.
	DefaultReconnectDelay = 3 * time.Second

	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// FixedDelay waits the same duration before every attempt.
type FixedDelay struct {
	Wait    time.Duration
	Retries int // 0 = unbounded
}

func (p FixedDelay) Delay(int) time.Duration {
	if p.Wait <= 0 {
		return DefaultReconnectDelay
	}
	return p.Wait
}

func (p FixedDelay) MaxRetries() int { return p.Retries }

// ExponentialBackoff doubles the wait per consecutive failure, capped at Max.
type ExponentialBackoff struct {
	Base    time.Duration
	Max     time.Duration
	Retries int // 0 = unbounded
}

func (p ExponentialBackoff) Delay(attempt int) time.Duration {
	base, ceiling := p.Base, p.Max
	if base <= 0 {
		base = baseDelay
	}
	if ceiling <= 0 {
		ceiling = maxDelay
	}
	return calculateBackoff(attempt, base, ceiling)
}

func (p ExponentialBackoff) MaxRetries() int { return p.Retries }

// CalculateBackoff returns the exponential delay for the current retry attempt
// with the default 1s base and 60s cap.
func CalculateBackoff(retryCount int) time.Duration {
	return calculateBackoff(retryCount, baseDelay, maxDelay)
}

func calculateBackoff(retryCount int, base, ceiling time.Duration) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := float64(base) * math.Pow(2, float64(retryCount))
	if delay > float64(ceiling) {
		return ceiling
	}
	return time.Duration(delay)
}
