// Package cache 為 AI 供應商提供回應快取。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrMiss 快取未命中
var ErrMiss = errors.New("cache miss")

// Store 快取後端
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Provider 以快取包裝供應商；快取錯誤只記錄不影響呼叫
type Provider struct {
	next  ai.Provider
	store Store
	ttl   time.Duration
}

// Wrap 建立快取供應商
func Wrap(next ai.Provider, store Store, ttl time.Duration) *Provider {
	return &Provider{next: next, store: store, ttl: ttl}
}

// Name 沿用底層供應商名稱
func (p *Provider) Name() string { return p.next.Name() }

// Generate 先查快取，未命中才呼叫底層供應商
func (p *Provider) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	key := req.CacheKey(p.next.Name())

	if data, err := p.store.Get(ctx, key); err == nil {
		var resp ai.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			resp.CacheHit = true
			common.LogDebug("快取命中", zap.String("provider", resp.Provider))
			return &resp, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		common.LogWarn("讀取快取失敗", zap.Error(err))
	}

	resp, err := p.next.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := p.store.Set(ctx, key, data, p.ttl); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return resp, nil
}
