package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"horeca-ingredients/internal/core/parser"
)

// Researcher 呼叫供應商並解析 JSON 記錄
type Researcher struct {
	provider Provider
	parser   *parser.Parser
}

// NewResearcher 建立研究器
func NewResearcher(provider Provider, p *parser.Parser) *Researcher {
	if p == nil {
		p = parser.New(nil)
	}
	return &Researcher{provider: provider, parser: p}
}

// Provider 底層供應商
func (r *Researcher) Provider() Provider { return r.provider }

// GenerateContent 生成並解析內容，回傳記錄與來源回應
func (r *Researcher) GenerateContent(ctx context.Context, req *Request) ([]json.RawMessage, *Response, error) {
	resp, err := r.provider.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	records, err := r.parser.Parse(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse %s response: %w", resp.Provider, err)
	}
	return records, resp, nil
}
