// Package ai 定義研究供應商介面、錯誤型別與供應商鏈。
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse 供應商回傳空內容
	ErrEmptyResponse = errors.New("empty response from AI provider")
	// ErrNoProvider 未設定任何供應商
	ErrNoProvider = errors.New("no AI provider configured")
)

// Request 發送到 AI 供應商的請求
type Request struct {
	System      string   `json:"system"`
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	Domains     []string `json:"domains,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
}

// CacheKey 以請求內容產生快取鍵
func (r *Request) CacheKey(provider string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%d\x00%g",
		provider, r.Model, r.System, r.Prompt, strings.Join(r.Domains, ","), r.MaxTokens, r.Temperature)
	return "ai:response:" + hex.EncodeToString(h.Sum(nil))
}

// Response AI 供應商的回應
type Response struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	CacheHit bool   `json:"cache_hit"`
}

// Provider 研究供應商介面
type Provider interface {
	// Name 供應商名稱，作為生成記錄的來源標記
	Name() string
	// Generate 生成回應
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// HTTPError 供應商回傳非 2xx 狀態
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable 是否值得重試
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable 判斷錯誤是否可重試；客戶端錯誤（除 429 外）不重試
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}
