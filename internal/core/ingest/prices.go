package ingest

import (
	"context"
	"fmt"
	"strings"

	"horeca-ingredients/internal/core/heuristics"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FlagPrefix 待人工審核價格的標記前綴
const FlagPrefix = "REVISAR_PRECIO_"

// PriceRepository 價格寫入所需的資料存取
type PriceRepository interface {
	ListCountries(ctx context.Context) ([]model.Country, error)
	InsertPrices(ctx context.Context, prices []model.Price) error
	ReplacePrices(ctx context.Context, ingredientID string, prices []model.Price) error
}

// PriceOutcome 單一食材價格處理結果
type PriceOutcome struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Flagged  int `json:"flagged"`
}

// PriceProcessor 多國價格處理器
type PriceProcessor struct {
	repo  PriceRepository
	rules *heuristics.Rules
}

// NewPriceProcessor 建立價格處理器
func NewPriceProcessor(repo PriceRepository, rules *heuristics.Rules) *PriceProcessor {
	if rules == nil {
		rules = heuristics.Default()
	}
	return &PriceProcessor{repo: repo, rules: rules}
}

// Process 寫入食材的各國價格。replace 為 true 時先刪除該食材所有既有價格。
// 無法辨識的國家直接略過；合理範圍以每公斤價格判斷，不合理的價格仍以原始金額與單位寫入，
// 但在 season_variation 標記待審。
func (p *PriceProcessor) Process(ctx context.Context, ingredientID, ingredientName string, entries []model.PriceEntry, replace bool) (*PriceOutcome, error) {
	out := &PriceOutcome{}
	if len(entries) == 0 {
		return out, nil
	}

	countries, err := p.repo.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.Country, len(countries))
	byName := make(map[string]model.Country, len(countries))
	for _, c := range countries {
		byCode[strings.ToUpper(c.Code)] = c
		byName[common.NormalizeName(c.Name)] = c
	}

	tag := p.rules.GuessCategory(ingredientName)
	prices := make([]model.Price, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		country, ok := byCode[strings.ToUpper(strings.TrimSpace(e.CountryCode))]
		if !ok {
			country, ok = byName[common.NormalizeName(e.Country)]
		}
		if !ok {
			out.Skipped++
			common.LogDebug("略過未知國家的價格",
				zap.String("ingredient", ingredientName),
				zap.String("country_code", e.CountryCode),
				zap.String("country", e.Country))
			continue
		}
		amount := e.Price.Float()
		if amount <= 0 || seen[country.ID] {
			out.Skipped++
			continue
		}
		seen[country.ID] = true

		unit := model.ParseUnit(e.Unit)
		variation := common.LimitLength(e.SeasonVariation, 200)
		if !p.rules.ValidateHorecaPrice(unit.PerKg(amount), tag, ingredientName) {
			out.Flagged++
			variation = flagVariation(tag, variation)
			rg := p.rules.Range(tag, ingredientName)
			common.LogWarn("價格超出 HORECA 合理範圍，標記待審",
				zap.String("ingredient", ingredientName),
				zap.String("country", country.Code),
				zap.Float64("price", amount),
				zap.String("unit", string(unit)),
				zap.Float64("min", rg.Min),
				zap.Float64("max", rg.Max))
		}

		prices = append(prices, model.Price{
			IngredientID:    ingredientID,
			CountryID:       country.ID,
			Amount:          decimal.NewFromFloat(amount).Round(2),
			Unit:            unit,
			SeasonVariation: variation,
		})
	}

	// 沒有可用價格時保留既有資料
	if len(prices) == 0 {
		return out, nil
	}

	if replace {
		err = p.repo.ReplacePrices(ctx, ingredientID, prices)
	} else {
		err = p.repo.InsertPrices(ctx, prices)
	}
	if err != nil {
		return nil, fmt.Errorf("save prices for %s: %w", ingredientID, err)
	}
	out.Inserted = len(prices)
	return out, nil
}

func flagVariation(tag, note string) string {
	flag := FlagPrefix + strings.ToUpper(tag)
	if note == "" {
		return flag
	}
	return flag + " | " + note
}
