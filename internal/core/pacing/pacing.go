// Package pacing 控制批次內連續呼叫外部服務的節奏。
package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer 在每次外部呼叫前等待
type Pacer interface {
	Wait(ctx context.Context) error
}

// None 不等待
type None struct{}

// Wait 立即回傳
func (None) Wait(ctx context.Context) error { return ctx.Err() }

// FixedDelay 兩次呼叫之間固定等待，第一次不等待
type FixedDelay struct {
	Delay time.Duration

	mu      sync.Mutex
	started bool
}

// NewFixedDelay 建立固定延遲
func NewFixedDelay(d time.Duration) *FixedDelay {
	return &FixedDelay{Delay: d}
}

// Wait 第一次呼叫立即回傳，之後等待 Delay
func (f *FixedDelay) Wait(ctx context.Context) error {
	f.mu.Lock()
	first := !f.started
	f.started = true
	f.mu.Unlock()

	if first || f.Delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(f.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucket 以每分鐘請求數限制
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket 建立令牌桶，burst 固定為 1
func NewTokenBucket(requestsPerMinute int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), 1)}
}

// Wait 等待下一個令牌
func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Factory 每個批次建立新的 Pacer，確保批次之間互不影響
type Factory func() Pacer

// NewFactory 依設定建立 Pacer 工廠
func NewFactory(kind string, delay time.Duration, requestsPerMinute int) (Factory, error) {
	switch kind {
	case "", "fixed":
		return func() Pacer { return NewFixedDelay(delay) }, nil
	case "token_bucket":
		if requestsPerMinute <= 0 {
			return nil, fmt.Errorf("token bucket pacer requires requests per minute > 0")
		}
		// 令牌桶跨批次共用
		shared := NewTokenBucket(requestsPerMinute)
		return func() Pacer { return shared }, nil
	case "none":
		return func() Pacer { return None{} }, nil
	default:
		return nil, fmt.Errorf("unknown pacer %q", kind)
	}
}
