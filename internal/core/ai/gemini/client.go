// Package gemini 快速供應商，使用 Google Generative AI SDK。
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/pkg/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const providerName = "gemini"

// generator 抽象 genai.GenerativeModel，方便測試
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client Gemini 客戶端
type Client struct {
	client  *genai.Client
	model   generator
	name    string
	timeout time.Duration
}

// NewClient 建立 Gemini 客戶端
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{client: client, model: m, name: model, timeout: timeout}, nil
}

// Name 供應商名稱
func (c *Client) Name() string { return providerName }

// Generate 生成內容；系統指令以第一段文字傳入
func (c *Client) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := make([]genai.Part, 0, 2)
	if req.System != "" {
		parts = append(parts, genai.Text(req.System))
	}
	parts = append(parts, genai.Text(req.Prompt))

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		err = fmt.Errorf("gemini generate: %w", err)
		common.LogAICall(providerName, c.name, time.Since(start), err)
		return nil, err
	}

	text, err := responseText(resp)
	common.LogAICall(providerName, c.name, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return &ai.Response{Content: text, Provider: providerName, Model: c.name}, nil
}

// Close 關閉底層連線
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// responseText 取出第一個候選的所有文字片段
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ai.ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", ai.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("unexpected response format from Gemini: %w", ai.ErrEmptyResponse)
	}
	return sb.String(), nil
}
