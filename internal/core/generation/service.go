// Package generation 以研究供應商生成食材、分類與價格內容
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/dedup"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/core/pacing"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// 生成模式
const (
	ModeManual    = "manual"
	ModeAutomatic = "automatic"
)

// FallbackProvider 供應商全面失敗時的來源標記
const FallbackProvider = "fallback_after_error"

// Researcher 供應商研究介面
type Researcher interface {
	Provider() ai.Provider
	GenerateContent(ctx context.Context, req *ai.Request) ([]json.RawMessage, *ai.Response, error)
}

// PriceResearcher 單一食材價格研究
type PriceResearcher interface {
	Research(ctx context.Context, ing *model.Ingredient) (*model.PriceUpdateRecord, *ai.Response, error)
}

// Repository 生成前所需的目錄查詢
type Repository interface {
	ListIngredientRefs(ctx context.Context) ([]model.IngredientRef, error)
	ListCategoryNames(ctx context.Context) ([]string, error)
	GetIngredient(ctx context.Context, id string) (*model.Ingredient, error)
}

// Request 生成請求；IngredientsList 非空時為手動模式
type Request struct {
	Type            string   `json:"type"`
	Count           int      `json:"count,omitempty"`
	Category        string   `json:"category,omitempty"`
	Region          string   `json:"region,omitempty"`
	Ingredient      string   `json:"ingredient,omitempty"`
	IngredientsList []string `json:"ingredientsList,omitempty"`
}

// Response 生成結果
type Response struct {
	Success        bool              `json:"success"`
	Data           []model.Candidate `json:"data"`
	GeneratedCount int               `json:"generated_count"`
	AIProvider     string            `json:"ai_provider"`
	GenerationMode string            `json:"generation_mode"`
	Message        string            `json:"message"`
	Warning        string            `json:"warning,omitempty"`
}

// Options 生成設定
type Options struct {
	ManualMaxItems    int
	MaxAutomaticCount int
	DefaultCount      int
	DefaultRegion     string
	MaxTokens         int
}

// Service 內容生成服務
type Service struct {
	repo     Repository
	research Researcher
	prices   PriceResearcher
	prompts  *prompt.Builder
	pace     pacing.Factory
	opts     Options
}

// NewService 建立生成服務
func NewService(repo Repository, research Researcher, prices PriceResearcher, prompts *prompt.Builder, pace pacing.Factory, opts Options) *Service {
	if opts.ManualMaxItems <= 0 {
		opts.ManualMaxItems = 8
	}
	if opts.MaxAutomaticCount <= 0 {
		opts.MaxAutomaticCount = 10
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 5
	}
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = "España"
	}
	if pace == nil {
		pace = func() pacing.Pacer { return pacing.None{} }
	}
	return &Service{repo: repo, research: research, prices: prices, prompts: prompts, pace: pace, opts: opts}
}

// Generate 依內容類型與模式生成內容
func (s *Service) Generate(ctx context.Context, req Request) (*Response, error) {
	ct, err := model.ParseContentType(req.Type)
	if err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	var list []string
	if req.IngredientsList != nil {
		if len(cleanList(req.IngredientsList)) == 0 {
			return nil, common.NewValidationError("ingredientsList is empty")
		}
		list = req.IngredientsList
	}
	if req.Region = strings.TrimSpace(req.Region); req.Region == "" {
		req.Region = s.opts.DefaultRegion
	}

	var resp *Response
	switch ct {
	case model.TypeIngredient:
		if len(list) > 0 {
			resp, err = s.manualIngredients(ctx, req, list)
		} else {
			resp, err = s.automaticIngredients(ctx, req)
		}
	case model.TypeCategory:
		resp, err = s.categories(ctx, req, list)
	case model.TypePriceUpdate:
		resp, err = s.priceUpdate(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	resp.Success = true
	resp.GeneratedCount = countOK(resp.Data)
	if resp.Message == "" {
		resp.Message = fmt.Sprintf("Generados %d de %d elementos (%s)", resp.GeneratedCount, len(resp.Data), ct)
	}
	common.LogInfo("內容生成完成",
		zap.String("type", string(ct)),
		zap.String("mode", resp.GenerationMode),
		zap.String("provider", resp.AIProvider),
		zap.Int("items", len(resp.Data)),
		zap.Int("generated", resp.GeneratedCount))
	return resp, nil
}

func (s *Service) snapshot(ctx context.Context) (*dedup.Snapshot, error) {
	refs, err := s.repo.ListIngredientRefs(ctx)
	if err != nil {
		return nil, common.ErrPersistence.Wrap(err)
	}
	return dedup.NewSnapshot(refs), nil
}

func (s *Service) request(p string) *ai.Request {
	return &ai.Request{System: prompt.System, Prompt: p, MaxTokens: s.opts.MaxTokens}
}

func (s *Service) providerName() string {
	if p := s.research.Provider(); p != nil {
		return p.Name()
	}
	return "unknown"
}

// isProviderError 供應商呼叫本身失敗（而非回應無法解析）
func isProviderError(resp *ai.Response, err error) bool {
	return err != nil && resp == nil
}

func (s *Service) priceUpdate(ctx context.Context, req Request) (*Response, error) {
	key := strings.TrimSpace(req.Ingredient)
	if key == "" {
		return nil, common.NewValidationError("ingredient is required for price_update")
	}
	ing, err := s.findIngredient(ctx, key)
	if err != nil {
		return nil, err
	}

	out := &Response{GenerationMode: ModeManual, AIProvider: s.providerName()}
	var (
		rec  *model.PriceUpdateRecord
		resp *ai.Response
	)
	err = s.pace().Wait(ctx)
	if err == nil {
		rec, resp, err = s.prices.Research(ctx, ing)
	}
	if err != nil {
		status := model.StatusFailed
		if isProviderError(resp, err) {
			status = model.StatusAIError
			out.AIProvider = FallbackProvider
			out.Warning = "El proveedor de IA no respondió; no se generaron precios."
		}
		common.LogWarn("價格研究失敗", zap.String("ingredient", ing.Name), zap.Error(err))
		out.Data = []model.Candidate{model.FailedCandidate(ing.Name, status, err)}
		return out, nil
	}
	c := model.NewCandidate(rec, resp.Provider)
	c.RequestedIngredient = ing.Name
	out.Data = []model.Candidate{c}
	out.AIProvider = resp.Provider
	return out, nil
}

// findIngredient 先以 ID 查詢，再以名稱比對
func (s *Service) findIngredient(ctx context.Context, key string) (*model.Ingredient, error) {
	ing, err := s.repo.GetIngredient(ctx, key)
	if err == nil {
		return ing, nil
	}
	snap, serr := s.snapshot(ctx)
	if serr != nil {
		return nil, serr
	}
	if m, ok := snap.FindMatch(model.IngredientNames{Name: key}, true); ok {
		if ing, err := s.repo.GetIngredient(ctx, m.ID); err == nil {
			return ing, nil
		}
	}
	return nil, common.ErrNotFound.Wrap(fmt.Errorf("ingredient %q", key))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func countOK(data []model.Candidate) int {
	n := 0
	for _, c := range data {
		if c.Status.OK() {
			n++
		}
	}
	return n
}

// aiErrorSignal 取出 AI 回傳的 {"error": "..."} 訊號
func aiErrorSignal(raw json.RawMessage) (string, bool) {
	var probe struct {
		Error string `json:"error"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", false
	}
	if probe.Error != "" && probe.Name == "" {
		return probe.Error, true
	}
	return "", false
}

var (
	errEmptyRecord = errors.New("AI returned an empty record")
	errBlankName   = errors.New("empty ingredient name")
	errOverLimit   = errors.New("exceeds the per-request item limit")
)
