// Package images 為食材研究並驗證實拍圖片
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"horeca-ingredients/internal/core/ai"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/core/pacing"
	"horeca-ingredients/internal/core/parser"
	"horeca-ingredients/internal/core/prompt"
	"horeca-ingredients/internal/infrastructure/store"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// SourceResearch 自動研究圖片的來源標記
const SourceResearch = "ai_research"

var imageCategories = map[string]bool{"raw": true, "cooked": true, "cut": true, "whole": true, "variety": true}

// Repository 圖片研究所需的資料存取
type Repository interface {
	GetIngredient(ctx context.Context, id string) (*model.Ingredient, error)
	ListImageURLs(ctx context.Context, ingredientID string) ([]string, error)
	InsertImage(ctx context.Context, img *model.RealImage) error
}

// URLValidator 圖片網址驗證
type URLValidator interface {
	Validate(ctx context.Context, url string) error
}

// Candidate AI 提供的候選圖片
type Candidate struct {
	URL      string `json:"url"`
	Caption  string `json:"caption"`
	Category string `json:"category"`
}

// Rejection 未採用的候選
type Rejection struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Result 單一食材的圖片研究結果
type Result struct {
	IngredientID string            `json:"ingredient_id"`
	Name         string            `json:"name,omitempty"`
	Found        int               `json:"found"`
	Saved        int               `json:"saved"`
	Images       []model.RealImage `json:"images,omitempty"`
	Rejected     []Rejection       `json:"rejected,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Summary 批次統計
type Summary struct {
	Total       int `json:"total"`
	Successful  int `json:"successful"`
	Failed      int `json:"failed"`
	ImagesFound int `json:"images_found"`
	ImagesSaved int `json:"images_saved"`
}

// Options 圖片研究設定
type Options struct {
	MaxCandidates   int
	ValidationDelay time.Duration
	AllowedDomains  []string
	MaxBatch        int
	Model           string
}

// Service 圖片研究服務
type Service struct {
	repo      Repository
	provider  ai.Provider
	prompts   *prompt.Builder
	validator URLValidator
	opts      Options
}

// NewService 建立圖片研究服務
func NewService(repo Repository, provider ai.Provider, prompts *prompt.Builder, validator URLValidator, opts Options) *Service {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 6
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 10
	}
	return &Service{repo: repo, provider: provider, prompts: prompts, validator: validator, opts: opts}
}

// Research 研究並儲存單一食材的圖片
func (s *Service) Research(ctx context.Context, ingredientID string) (*Result, error) {
	ing, err := s.repo.GetIngredient(ctx, ingredientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, common.ErrNotFound.Wrap(fmt.Errorf("ingredient %s", ingredientID))
		}
		return nil, common.ErrPersistence.Wrap(err)
	}
	res := &Result{IngredientID: ing.ID, Name: ing.Name}

	resp, err := s.provider.Generate(ctx, &ai.Request{
		System:  prompt.ImageSystem,
		Prompt:  s.prompts.Images(ing.Name, ing.Description, s.opts.MaxCandidates),
		Model:   s.opts.Model,
		Domains: s.opts.AllowedDomains,
	})
	if err != nil {
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	candidates, err := decodeCandidates(resp.Content)
	if err != nil {
		common.LogWarn("圖片研究回應無法解析",
			zap.String("ingredient", ing.Name),
			zap.String("preview", common.Truncate(resp.Content, 300)),
			zap.Error(err))
		return res, nil
	}
	if len(candidates) > s.opts.MaxCandidates {
		candidates = candidates[:s.opts.MaxCandidates]
	}
	res.Found = len(candidates)

	existing, err := s.repo.ListImageURLs(ctx, ing.ID)
	if err != nil {
		return nil, common.ErrPersistence.Wrap(err)
	}
	seen := make(map[string]bool, len(existing)+len(candidates))
	for _, u := range existing {
		seen[u] = true
	}

	pacer := pacing.NewFixedDelay(s.opts.ValidationDelay)
	for _, c := range candidates {
		u := strings.TrimSpace(c.URL)
		if seen[u] {
			res.Rejected = append(res.Rejected, Rejection{URL: u, Reason: "already stored"})
			continue
		}
		seen[u] = true

		if err := PreFilter(u); err != nil {
			res.Rejected = append(res.Rejected, Rejection{URL: u, Reason: err.Error()})
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			return res, err
		}
		if err := s.validator.Validate(ctx, u); err != nil {
			common.LogDebug("圖片驗證未通過", zap.String("url", u), zap.Error(err))
			res.Rejected = append(res.Rejected, Rejection{URL: u, Reason: err.Error()})
			continue
		}

		img := &model.RealImage{
			IngredientID: ing.ID,
			URL:          u,
			Caption:      common.LimitLength(c.Caption, 300),
			Category:     normalizeCategory(c.Category),
			Approved:     true,
			Source:       SourceResearch,
		}
		if err := s.repo.InsertImage(ctx, img); err != nil {
			common.LogWarn("圖片寫入失敗", zap.String("url", u), zap.Error(err))
			res.Rejected = append(res.Rejected, Rejection{URL: u, Reason: "save failed"})
			continue
		}
		res.Images = append(res.Images, *img)
		res.Saved++
	}

	common.LogInfo("圖片研究完成",
		zap.String("ingredient", ing.Name),
		zap.Int("found", res.Found),
		zap.Int("saved", res.Saved))
	return res, nil
}

// ResearchMany 逐一研究多個食材，單一失敗不中斷批次
func (s *Service) ResearchMany(ctx context.Context, ids []string) ([]Result, Summary) {
	if len(ids) > s.opts.MaxBatch {
		ids = ids[:s.opts.MaxBatch]
	}
	results := make([]Result, 0, len(ids))
	var sum Summary
	for _, id := range ids {
		sum.Total++
		res, err := s.Research(ctx, id)
		if err != nil {
			common.LogWarn("食材圖片研究失敗", zap.String("ingredient_id", id), zap.Error(err))
			results = append(results, Result{IngredientID: id, Error: err.Error()})
			sum.Failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, *res)
		sum.Successful++
		sum.ImagesFound += res.Found
		sum.ImagesSaved += res.Saved
	}
	return results, sum
}

func decodeCandidates(content string) ([]Candidate, error) {
	raws, err := parser.ParseLenient(content, "images")
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(raws))
	for _, raw := range raws {
		var c Candidate
		if err := json.Unmarshal(raw, &c); err != nil || strings.TrimSpace(c.URL) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func normalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if imageCategories[c] {
		return c
	}
	return "raw"
}
