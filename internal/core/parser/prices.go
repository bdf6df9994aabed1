package parser

import (
	"encoding/json"

	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

type pricedRecord struct {
	Name           string             `json:"name"`
	IngredientName string             `json:"ingredient_name"`
	Prices         []model.PriceEntry `json:"prices_by_country"`
}

// FlagSuspiciousPrices 記錄超出合理範圍的價格，不會剔除任何記錄。
// 回傳被標記的價格數量。
func (p *Parser) FlagSuspiciousPrices(records []json.RawMessage) int {
	flagged := 0
	for _, raw := range records {
		var rec pricedRecord
		if err := json.Unmarshal(raw, &rec); err != nil || len(rec.Prices) == 0 {
			continue
		}
		name := rec.Name
		if name == "" {
			name = rec.IngredientName
		}
		tag := p.rules.GuessCategory(name)
		for _, price := range rec.Prices {
			unit := model.ParseUnit(price.Unit)
			if p.rules.ValidateHorecaPrice(unit.PerKg(price.Price.Float()), tag, name) {
				continue
			}
			flagged++
			rg := p.rules.Range(tag, name)
			common.LogWarn("可疑價格",
				zap.String("ingredient", name),
				zap.String("category_tag", tag),
				zap.String("country", price.CountryCode),
				zap.Float64("price", price.Price.Float()),
				zap.String("unit", string(unit)),
				zap.Float64("min", rg.Min),
				zap.Float64("max", rg.Max),
			)
		}
	}
	return flagged
}
