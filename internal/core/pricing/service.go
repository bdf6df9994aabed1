// Package pricing 重新研究並更新食材的多國價格
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/ingest"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/core/pacing"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// 更新模式
const (
	ModeProblematic = "problematic"
	ModeAll         = "all"
	ModeSpecific    = "specific"
)

// Repository 價格更新所需的食材查詢
type Repository interface {
	ListIngredients(ctx context.Context, limit int) ([]model.Ingredient, error)
	ListIngredientsByIDs(ctx context.Context, ids []string) ([]model.Ingredient, error)
	ListIngredientsNeedingPriceReview(ctx context.Context, flagPrefix string, limit int) ([]model.Ingredient, error)
}

// Researcher 供應商研究介面
type Researcher interface {
	GenerateContent(ctx context.Context, req *ai.Request) ([]json.RawMessage, *ai.Response, error)
}

// Request 價格更新請求
type Request struct {
	Mode          string   `json:"mode"`
	IngredientIDs []string `json:"ingredientIds,omitempty"`
	BatchSize     int      `json:"batchSize,omitempty"`
}

// FailedIngredient 更新失敗的食材
type FailedIngredient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Summary 價格更新統計
type Summary struct {
	TotalProcessed     int                `json:"total_processed"`
	SuccessfulUpdates  int                `json:"successful_updates"`
	FailedUpdates      int                `json:"failed_updates"`
	UpdatedIngredients []string           `json:"updated_ingredients"`
	FailedIngredients  []FailedIngredient `json:"failed_ingredients"`
}

// Options 價格更新設定
type Options struct {
	Region           string
	DefaultBatchSize int
	MaxTokens        int
}

// Service 價格更新服務
type Service struct {
	repo     Repository
	research Researcher
	prompts  *prompt.Builder
	prices   *ingest.PriceProcessor
	pace     pacing.Factory
	opts     Options
}

// NewService 建立價格更新服務
func NewService(repo Repository, research Researcher, prompts *prompt.Builder, prices *ingest.PriceProcessor, pace pacing.Factory, opts Options) *Service {
	if opts.DefaultBatchSize <= 0 {
		opts.DefaultBatchSize = 5
	}
	if opts.Region == "" {
		opts.Region = "España"
	}
	if pace == nil {
		pace = func() pacing.Pacer { return pacing.None{} }
	}
	return &Service{repo: repo, research: research, prompts: prompts, prices: prices, pace: pace, opts: opts}
}

// Research 研究單一食材的價格，不寫入資料庫
func (s *Service) Research(ctx context.Context, ing *model.Ingredient) (*model.PriceUpdateRecord, *ai.Response, error) {
	req := &ai.Request{
		System:    prompt.System,
		Prompt:    s.prompts.Prices(ing.Name, s.opts.Region),
		MaxTokens: s.opts.MaxTokens,
	}
	raws, resp, err := s.research.GenerateContent(ctx, req)
	if err != nil {
		return nil, resp, err
	}
	rec := &model.PriceUpdateRecord{
		IngredientID:   ing.ID,
		IngredientName: ing.Name,
		Prices:         DecodePriceEntries(raws),
	}
	if len(rec.Prices) == 0 {
		return nil, resp, fmt.Errorf("no prices found for %s", ing.Name)
	}
	return rec, resp, nil
}

// Update 依模式重新研究並取代價格，逐一處理
func (s *Service) Update(ctx context.Context, req Request) (*Summary, error) {
	targets, err := s.targets(ctx, req)
	if err != nil {
		return nil, err
	}

	sum := &Summary{UpdatedIngredients: []string{}, FailedIngredients: []FailedIngredient{}}
	pacer := s.pace()

	for i := range targets {
		ing := &targets[i]
		sum.TotalProcessed++

		if err := pacer.Wait(ctx); err != nil {
			return sum, err
		}

		if err := s.updateOne(ctx, ing); err != nil {
			common.LogWarn("價格更新失敗", zap.String("ingredient", ing.Name), zap.Error(err))
			sum.FailedUpdates++
			sum.FailedIngredients = append(sum.FailedIngredients, FailedIngredient{ID: ing.ID, Name: ing.Name, Error: err.Error()})
			continue
		}
		sum.SuccessfulUpdates++
		sum.UpdatedIngredients = append(sum.UpdatedIngredients, ing.Name)
	}

	common.LogInfo("價格更新完成",
		zap.String("mode", req.Mode),
		zap.Int("total", sum.TotalProcessed),
		zap.Int("success", sum.SuccessfulUpdates),
		zap.Int("failed", sum.FailedUpdates))
	return sum, nil
}

func (s *Service) updateOne(ctx context.Context, ing *model.Ingredient) error {
	rec, _, err := s.Research(ctx, ing)
	if err != nil {
		return err
	}
	out, err := s.prices.Process(ctx, ing.ID, ing.Name, rec.Prices, true)
	if err != nil {
		return err
	}
	if out.Inserted == 0 {
		return fmt.Errorf("no usable prices for %s", ing.Name)
	}
	return nil
}

func (s *Service) targets(ctx context.Context, req Request) ([]model.Ingredient, error) {
	limit := req.BatchSize
	if limit <= 0 {
		limit = s.opts.DefaultBatchSize
	}

	var (
		list []model.Ingredient
		err  error
	)
	switch strings.TrimSpace(req.Mode) {
	case ModeProblematic, "":
		list, err = s.repo.ListIngredientsNeedingPriceReview(ctx, ingest.FlagPrefix, limit)
	case ModeAll:
		list, err = s.repo.ListIngredients(ctx, limit)
	case ModeSpecific:
		if len(req.IngredientIDs) == 0 {
			return nil, common.NewValidationError("ingredientIds is required for specific mode")
		}
		list, err = s.repo.ListIngredientsByIDs(ctx, req.IngredientIDs)
		if err == nil && len(list) > limit {
			list = list[:limit]
		}
	default:
		return nil, common.NewValidationError(fmt.Sprintf("unknown price update mode %q", req.Mode))
	}
	if err != nil {
		return nil, common.ErrPersistence.Wrap(err)
	}
	return list, nil
}

// DecodePriceEntries 從研究回應取出價格；接受包裝物件或直接的價格陣列
func DecodePriceEntries(raws []json.RawMessage) []model.PriceEntry {
	var out []model.PriceEntry
	for _, raw := range raws {
		var rec model.PriceUpdateRecord
		if err := json.Unmarshal(raw, &rec); err == nil && len(rec.Prices) > 0 {
			out = append(out, rec.Prices...)
			continue
		}
		var entry model.PriceEntry
		if err := json.Unmarshal(raw, &entry); err == nil && (entry.CountryCode != "" || entry.Country != "") {
			out = append(out, entry)
		}
	}
	return out
}
