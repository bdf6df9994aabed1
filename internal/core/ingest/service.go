// Package ingest 將生成記錄寫入目錄資料庫
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"horeca-ingredients/internal/core/dedup"
	"horeca-ingredients/internal/core/heuristics"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/infrastructure/store"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// 欄位長度上限
const (
	maxNameLen        = 120
	maxDescriptionLen = 1000
	maxShortTextLen   = 200
	maxUseLen         = 300
)

// 單筆結果狀態
const (
	ItemCreated   = "created"
	ItemDuplicate = "duplicate"
	ItemExists    = "exists"
	ItemUpdated   = "updated"
	ItemFailed    = "failed"
)

// Repository 入庫所需的資料存取
type Repository interface {
	PriceRepository
	ListIngredientRefs(ctx context.Context) ([]model.IngredientRef, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	InsertIngredient(ctx context.Context, ing *model.Ingredient) error
	GetIngredient(ctx context.Context, id string) (*model.Ingredient, error)
	InsertNutrition(ctx context.Context, n *model.NutritionalInfo) error
	InsertUses(ctx context.Context, uses []model.Use) error
	InsertRecipes(ctx context.Context, recipes []model.Recipe) error
	InsertVarieties(ctx context.Context, varieties []model.Variety) error
	InsertAudit(ctx context.Context, e *model.AuditEntry) error
}

// Options 入庫設定
type Options struct {
	MaxUses             int
	MaxRecipes          int
	MaxVarieties        int
	IncrementalSnapshot bool
}

// Batch 一次入庫請求
type Batch struct {
	Type    model.ContentType
	Records []model.Record
	UserID  string
	Mode    string
}

// ItemResult 單筆記錄的入庫結果
type ItemResult struct {
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	ID          string        `json:"id,omitempty"`
	MatchedID   string        `json:"matched_id,omitempty"`
	Prices      *PriceOutcome `json:"prices,omitempty"`
	ChildErrors []string      `json:"child_errors,omitempty"`
}

// Summary 入庫統計
type Summary struct {
	TotalProcessed      int `json:"total_processed"`
	SuccessfullyCreated int `json:"successfully_created"`
	DuplicatesSkipped   int `json:"duplicates_skipped"`
	Failed              int `json:"failed"`
}

// Result 入庫結果；Created 列出新建立的食材供圖片研究使用
type Result struct {
	Success bool                      `json:"success"`
	Items   []ItemResult              `json:"results"`
	Created []model.CreatedIngredient `json:"data"`
	Summary Summary                   `json:"summary"`
}

// Service 入庫服務
type Service struct {
	repo   Repository
	prices *PriceProcessor
	rules  *heuristics.Rules
	opts   Options
}

// NewService 建立入庫服務
func NewService(repo Repository, rules *heuristics.Rules, opts Options) *Service {
	if rules == nil {
		rules = heuristics.Default()
	}
	if opts.MaxUses <= 0 {
		opts.MaxUses = 10
	}
	if opts.MaxRecipes <= 0 {
		opts.MaxRecipes = 5
	}
	if opts.MaxVarieties <= 0 {
		opts.MaxVarieties = 10
	}
	return &Service{
		repo:   repo,
		prices: NewPriceProcessor(repo, rules),
		rules:  rules,
		opts:   opts,
	}
}

// Prices 價格處理器
func (s *Service) Prices() *PriceProcessor { return s.prices }

// Ingest 依內容類型寫入一批記錄
func (s *Service) Ingest(ctx context.Context, b Batch) (*Result, error) {
	if len(b.Records) == 0 {
		return nil, common.NewValidationError("no records to save")
	}

	var (
		res *Result
		err error
	)
	switch b.Type {
	case model.TypeIngredient:
		res, err = s.ingestIngredients(ctx, b.Records)
	case model.TypeCategory:
		res, err = s.ingestCategories(ctx, b.Records)
	case model.TypePriceUpdate:
		res, err = s.ingestPriceUpdates(ctx, b.Records)
	default:
		return nil, common.NewValidationError(fmt.Sprintf("unsupported content type %q", b.Type))
	}
	if err != nil {
		var sum Summary
		if res != nil {
			sum = res.Summary
		}
		sum.TotalProcessed = len(b.Records)
		s.audit(ctx, b, sum, err)
		return nil, err
	}

	res.Summary.TotalProcessed = len(b.Records)
	res.Success = true
	s.audit(ctx, b, res.Summary, nil)

	common.LogInfo("入庫完成",
		zap.String("type", string(b.Type)),
		zap.Int("total", res.Summary.TotalProcessed),
		zap.Int("created", res.Summary.SuccessfullyCreated),
		zap.Int("duplicates", res.Summary.DuplicatesSkipped),
		zap.Int("failed", res.Summary.Failed))
	return res, nil
}

func (s *Service) ingestIngredients(ctx context.Context, records []model.Record) (*Result, error) {
	refs, err := s.repo.ListIngredientRefs(ctx)
	if err != nil {
		return nil, common.ErrPersistence.Wrap(err)
	}
	snapshot := dedup.NewSnapshot(refs)

	res := &Result{Items: make([]ItemResult, 0, len(records)), Created: []model.CreatedIngredient{}}
	categories := map[string]string{}

	for _, r := range records {
		rec, ok := r.(*model.IngredientRecord)
		if !ok {
			res.Items = append(res.Items, ItemResult{Name: r.DisplayName(), Status: ItemFailed, Reason: "record is not an ingredient"})
			res.Summary.Failed++
			continue
		}

		ing := sanitizeIngredient(rec)
		if ing.Name == "" {
			res.Items = append(res.Items, ItemResult{Status: ItemFailed, Reason: "missing name"})
			res.Summary.Failed++
			continue
		}

		if m, dup := snapshot.FindMatch(ing.IngredientNames, false); dup {
			common.LogInfo("入庫略過重複食材",
				zap.String("name", ing.Name),
				zap.String("matched", m.Name),
				zap.String("field", m.Field))
			res.Items = append(res.Items, ItemResult{Name: ing.Name, Status: ItemDuplicate, Reason: "duplicate", MatchedID: m.ID})
			res.Summary.DuplicatesSkipped++
			continue
		}

		categoryID, err := s.resolveCategory(ctx, categories, categoryName(rec.Category))
		if err != nil {
			res.Summary.Failed++
			return res, common.ErrPersistence.Wrap(err)
		}
		ing.CategoryID = &categoryID

		if err := s.repo.InsertIngredient(ctx, ing); err != nil {
			common.LogError("食材寫入失敗，中止批次", zap.String("name", ing.Name), zap.Error(err))
			res.Summary.Failed++
			return res, common.ErrPersistence.Wrap(err)
		}

		item := ItemResult{Name: ing.Name, Status: ItemCreated, ID: ing.ID}
		item.Prices, item.ChildErrors = s.fanOut(ctx, ing, rec)
		res.Items = append(res.Items, item)
		res.Created = append(res.Created, model.CreatedIngredient{ID: ing.ID, Name: ing.Name, CreatedAt: ing.CreatedAt})
		res.Summary.SuccessfullyCreated++

		if s.opts.IncrementalSnapshot {
			snapshot.Add(ing.ID, ing.IngredientNames)
		}
	}
	return res, nil
}

// fanOut 寫入子表；任一子表失敗只記錄，不回滾主檔
func (s *Service) fanOut(ctx context.Context, ing *model.Ingredient, rec *model.IngredientRecord) (*PriceOutcome, []string) {
	var childErrs []string
	fail := func(child string, err error) {
		common.LogWarn("子表寫入失敗", zap.String("ingredient", ing.Name), zap.String("child", child), zap.Error(err))
		childErrs = append(childErrs, child+": "+err.Error())
	}

	prices, err := s.prices.Process(ctx, ing.ID, ing.Name, rec.Prices, false)
	if err != nil {
		fail("prices", err)
	}

	if n := rec.Nutrition; n != nil {
		err := s.repo.InsertNutrition(ctx, &model.NutritionalInfo{
			IngredientID: ing.ID,
			Calories:     common.ClampFloat(n.Calories.Float(), 0, 1000),
			Protein:      common.ClampFloat(n.Protein.Float(), 0, 100),
			Carbs:        common.ClampFloat(n.Carbs.Float(), 0, 100),
			Fat:          common.ClampFloat(n.Fat.Float(), 0, 100),
			Fiber:        common.ClampFloat(n.Fiber.Float(), 0, 100),
			Vitamins:     common.LimitLength(n.Vitamins, maxShortTextLen),
		})
		if err != nil {
			fail("nutritional_info", err)
		}
	}

	var uses []model.Use
	for _, u := range rec.Uses {
		if d := common.LimitLength(u, maxUseLen); d != "" && len(uses) < s.opts.MaxUses {
			uses = append(uses, model.Use{IngredientID: ing.ID, Description: d})
		}
	}
	if err := s.repo.InsertUses(ctx, uses); err != nil {
		fail("uses", err)
	}

	var recipes []model.Recipe
	for _, r := range rec.Recipes {
		name := common.LimitLength(r.Name, maxShortTextLen)
		if name == "" || len(recipes) >= s.opts.MaxRecipes {
			continue
		}
		recipes = append(recipes, model.Recipe{
			IngredientID: ing.ID,
			Name:         name,
			Type:         common.LimitLength(r.Type, 50),
			Difficulty:   common.LimitLength(r.Difficulty, 50),
			Time:         common.LimitLength(r.Time, 50),
		})
	}
	if err := s.repo.InsertRecipes(ctx, recipes); err != nil {
		fail("recipes", err)
	}

	var varieties []model.Variety
	for _, v := range rec.Varieties {
		name := common.LimitLength(v.Name, maxNameLen)
		if name == "" || len(varieties) >= s.opts.MaxVarieties {
			continue
		}
		varieties = append(varieties, model.Variety{
			IngredientID: ing.ID,
			Name:         name,
			Description:  common.LimitLength(v.Description, maxDescriptionLen),
		})
	}
	if err := s.repo.InsertVarieties(ctx, varieties); err != nil {
		fail("varieties", err)
	}

	return prices, childErrs
}

func (s *Service) resolveCategory(ctx context.Context, cache map[string]string, name string) (string, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	c, err := s.repo.GetCategoryByName(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		c = &model.Category{Name: name, NameEN: TranslateCategory(name)}
		if err := s.repo.CreateCategory(ctx, c); err != nil {
			if !errors.Is(err, store.ErrDuplicate) {
				return "", err
			}
			// 其他請求已建立同名分類
			if c, err = s.repo.GetCategoryByName(ctx, name); err != nil {
				return "", err
			}
		} else {
			common.LogInfo("建立新分類", zap.String("name", name), zap.String("name_en", c.NameEN))
		}
	default:
		return "", err
	}

	cache[name] = c.ID
	return c.ID, nil
}

func (s *Service) ingestCategories(ctx context.Context, records []model.Record) (*Result, error) {
	res := &Result{Items: make([]ItemResult, 0, len(records)), Created: []model.CreatedIngredient{}}
	for _, r := range records {
		rec, ok := r.(*model.CategoryRecord)
		if !ok {
			res.Items = append(res.Items, ItemResult{Name: r.DisplayName(), Status: ItemFailed, Reason: "record is not a category"})
			res.Summary.Failed++
			continue
		}
		name := strings.ToLower(common.LimitLength(rec.Name, maxNameLen))
		if name == "" {
			res.Items = append(res.Items, ItemResult{Status: ItemFailed, Reason: "missing name"})
			res.Summary.Failed++
			continue
		}
		nameEN := common.LimitLength(rec.NameEN, maxNameLen)
		if nameEN == "" {
			nameEN = TranslateCategory(name)
		}
		c := &model.Category{Name: name, NameEN: nameEN, Description: common.LimitLength(rec.Description, maxDescriptionLen)}
		if err := s.repo.CreateCategory(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				res.Items = append(res.Items, ItemResult{Name: name, Status: ItemExists, Reason: "already exists"})
				res.Summary.DuplicatesSkipped++
				continue
			}
			res.Summary.Failed++
			return res, common.ErrPersistence.Wrap(err)
		}
		res.Items = append(res.Items, ItemResult{Name: name, Status: ItemCreated, ID: c.ID})
		res.Summary.SuccessfullyCreated++
	}
	return res, nil
}

func (s *Service) ingestPriceUpdates(ctx context.Context, records []model.Record) (*Result, error) {
	res := &Result{Items: make([]ItemResult, 0, len(records)), Created: []model.CreatedIngredient{}}
	for _, r := range records {
		rec, ok := r.(*model.PriceUpdateRecord)
		if !ok || strings.TrimSpace(rec.IngredientID) == "" {
			res.Items = append(res.Items, ItemResult{Name: r.DisplayName(), Status: ItemFailed, Reason: "missing ingredient_id"})
			res.Summary.Failed++
			continue
		}
		ing, err := s.repo.GetIngredient(ctx, rec.IngredientID)
		if err != nil {
			res.Items = append(res.Items, ItemResult{Name: rec.DisplayName(), Status: ItemFailed, Reason: err.Error()})
			res.Summary.Failed++
			continue
		}
		out, err := s.prices.Process(ctx, ing.ID, ing.Name, rec.Prices, true)
		if err != nil {
			res.Items = append(res.Items, ItemResult{Name: ing.Name, ID: ing.ID, Status: ItemFailed, Reason: err.Error()})
			res.Summary.Failed++
			continue
		}
		res.Items = append(res.Items, ItemResult{Name: ing.Name, ID: ing.ID, Status: ItemUpdated, Prices: out})
		res.Summary.SuccessfullyCreated++
	}
	return res, nil
}

// audit 寫入審計日誌，失敗只記錄警告。cause 非 nil 表示批次中止。
func (s *Service) audit(ctx context.Context, b Batch, sum Summary, cause error) {
	fields := map[string]any{
		"type":       b.Type,
		"mode":       b.Mode,
		"total":      sum.TotalProcessed,
		"created":    sum.SuccessfullyCreated,
		"duplicates": sum.DuplicatesSkipped,
		"failed":     sum.Failed,
	}
	if cause != nil {
		fields["aborted"] = true
		fields["error"] = cause.Error()
	}
	details, err := common.ToJSON(fields)
	if err != nil {
		details = "{}"
	}
	entry := &model.AuditEntry{Action: "content_save_" + string(b.Type), UserID: b.UserID, Details: details}
	if err := s.repo.InsertAudit(ctx, entry); err != nil {
		common.LogWarn("審計日誌寫入失敗", zap.Error(err))
	}
}

func sanitizeIngredient(rec *model.IngredientRecord) *model.Ingredient {
	return &model.Ingredient{
		IngredientNames: model.IngredientNames{
			Name:   common.LimitLength(rec.Name, maxNameLen),
			NameEN: common.LimitLength(rec.NameEN, maxNameLen),
			NameFR: common.LimitLength(rec.NameFR, maxNameLen),
			NameIT: common.LimitLength(rec.NameIT, maxNameLen),
			NamePT: common.LimitLength(rec.NamePT, maxNameLen),
			NameLA: common.LimitLength(rec.NameLA, maxNameLen),
		},
		Description: common.LimitLength(rec.Description, maxDescriptionLen),
		Season:      common.LimitLength(rec.Season, maxShortTextLen),
		Origin:      common.LimitLength(rec.Origin, maxShortTextLen),
		Shrinkage:   common.ClampFloat(rec.Shrinkage.Float(), 0, 100),
		Yield:       common.ClampFloat(rec.Yield.Float(), 0, 100),
		Popularity:  int(common.ClampFloat(rec.Popularity.Float(), 0, 100)),
		CreatedAt:   time.Now().UTC(),
	}
}

func categoryName(raw string) string {
	name := strings.ToLower(common.LimitLength(raw, maxNameLen))
	if name == "" {
		return "otros"
	}
	return name
}
