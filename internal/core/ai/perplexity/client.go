// Package perplexity 深度研究供應商（OpenAI 相容的 chat completions API）。
package perplexity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

const (
	providerName   = "perplexity"
	defaultBaseURL = "https://api.perplexity.ai"
	maxErrorBody   = 1000
)

// Config 客戶端設定
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client Perplexity API 客戶端
type Client struct {
	http      *resty.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model              string    `json:"model"`
	Messages           []message `json:"messages"`
	MaxTokens          int       `json:"max_tokens,omitempty"`
	Temperature        float64   `json:"temperature,omitempty"`
	SearchDomainFilter []string  `json:"search_domain_filter,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// New 建立客戶端
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{
		http:      client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
	}
}

// Name 供應商名稱
func (c *Client) Name() string { return providerName }

// Generate 發送研究請求
func (c *Client) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	body := chatRequest{
		Model:              model,
		MaxTokens:          maxTokens,
		Temperature:        req.Temperature,
		SearchDomainFilter: req.Domains,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		err = fmt.Errorf("failed to send request to Perplexity: %w", err)
		common.LogAICall(providerName, model, time.Since(start), err)
		return nil, err
	}

	if !resp.IsSuccess() {
		httpErr := &ai.HTTPError{
			Provider:   providerName,
			StatusCode: resp.StatusCode(),
			Body:       common.Truncate(resp.String(), maxErrorBody),
		}
		common.LogAICall(providerName, model, time.Since(start), httpErr)
		return nil, httpErr
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		err = fmt.Errorf("failed to parse Perplexity response: %w", err)
		common.LogAICall(providerName, model, time.Since(start), err)
		return nil, err
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		common.LogAICall(providerName, model, time.Since(start), ai.ErrEmptyResponse)
		return nil, ai.ErrEmptyResponse
	}

	common.LogAICall(providerName, model, time.Since(start), nil)
	return &ai.Response{
		Content:  result.Choices[0].Message.Content,
		Provider: providerName,
		Model:    model,
	}, nil
}
