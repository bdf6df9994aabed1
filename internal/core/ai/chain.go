package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// Chain 依序嘗試多個供應商，每個供應商可重試，第一個成功者勝出
type Chain struct {
	providers []Provider
	retries   int
	backoff   time.Duration
}

// NewChain 建立供應商鏈
func NewChain(retries int, backoff time.Duration, providers ...Provider) *Chain {
	if retries < 0 {
		retries = 0
	}
	return &Chain{providers: providers, retries: retries, backoff: backoff}
}

// Name 鏈中所有供應商名稱
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// Generate 依序呼叫供應商，全部失敗時回傳合併的錯誤
func (c *Chain) Generate(ctx context.Context, req *Request) (*Response, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProvider
	}

	var errs []error
	for i, p := range c.providers {
		for attempt := 0; attempt <= c.retries; attempt++ {
			if attempt > 0 {
				if err := sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
					return nil, errors.Join(append(errs, err)...)
				}
			}

			resp, err := p.Generate(ctx, req)
			if err == nil && strings.TrimSpace(resp.Content) == "" {
				err = ErrEmptyResponse
			}
			if err == nil {
				if i > 0 || attempt > 0 {
					common.LogInfo("備援供應商成功",
						zap.String("provider", p.Name()),
						zap.Int("attempt", attempt+1),
					)
				}
				return resp, nil
			}

			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			common.LogWarn("供應商呼叫失敗",
				zap.String("provider", p.Name()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return nil, errors.Join(errs...)
			}
			if !IsRetryable(err) {
				break
			}
		}
	}
	return nil, errors.Join(errs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
