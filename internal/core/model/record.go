package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ContentType 生成內容類型
type ContentType string

const (
	TypeIngredient  ContentType = "ingredient"
	TypeCategory    ContentType = "category"
	TypePriceUpdate ContentType = "price_update"
)

// ParseContentType 驗證內容類型字串
func ParseContentType(s string) (ContentType, error) {
	switch ct := ContentType(strings.TrimSpace(s)); ct {
	case TypeIngredient, TypeCategory, TypePriceUpdate:
		return ct, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", s)
	}
}

// Record 生成記錄（依內容類型區分的封閉聯合型別）
type Record interface {
	Type() ContentType
	DisplayName() string
}

// Number 容忍 AI 以字串表示的數字，例如 "12,50 €"
type Number float64

var numberPattern = regexp.MustCompile(`-?\d[\d.,]*`)

// UnmarshalJSON 接受數字、字串或 null
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		*n = Number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, ok := ParseLooseNumber(s)
	if !ok {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Float 轉為 float64
func (n Number) Float() float64 { return float64(n) }

// ParseLooseNumber 從自由文字擷取第一個數字，處理歐式小數逗號
func ParseLooseNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.TrimRight(m, ".,")

	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(m, ",") > 1 {
			m = strings.ReplaceAll(m, ",", "")
		} else {
			m = strings.Replace(m, ",", ".", 1)
		}
	case strings.Count(m, ".") > 1:
		m = strings.ReplaceAll(m, ".", "")
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// PriceEntry AI 研究回傳的單一國家價格
type PriceEntry struct {
	CountryCode     string `json:"country_code"`
	Country         string `json:"country,omitempty"`
	Price           Number `json:"price"`
	Unit            string `json:"unit"`
	SeasonVariation string `json:"season_variation,omitempty"`
}

// NutritionRecord 營養資訊
type NutritionRecord struct {
	Calories Number `json:"calories"`
	Protein  Number `json:"protein"`
	Carbs    Number `json:"carbs"`
	Fat      Number `json:"fat"`
	Fiber    Number `json:"fiber"`
	Vitamins string `json:"vitamins,omitempty"`
}

// RecipeRecord 食譜摘要
type RecipeRecord struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Time       string `json:"time,omitempty"`
}

// VarietyRecord 品種，AI 可能回傳字串或物件
type VarietyRecord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON 接受 "name" 或 {"name": ..., "description": ...}
func (v *VarietyRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &v.Name)
	}
	type plain VarietyRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = VarietyRecord(p)
	return nil
}

// IngredientRecord 生成的食材記錄
type IngredientRecord struct {
	IngredientNames
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Season      string           `json:"season,omitempty"`
	Origin      string           `json:"origin,omitempty"`
	Shrinkage   Number           `json:"shrinkage"`
	Yield       Number           `json:"yield"`
	Popularity  Number           `json:"popularity"`
	Prices      []PriceEntry     `json:"prices_by_country,omitempty"`
	Nutrition   *NutritionRecord `json:"nutritional_info,omitempty"`
	Uses        []string         `json:"uses,omitempty"`
	Recipes     []RecipeRecord   `json:"recipes,omitempty"`
	Varieties   []VarietyRecord  `json:"varieties,omitempty"`
}

func (r *IngredientRecord) Type() ContentType   { return TypeIngredient }
func (r *IngredientRecord) DisplayName() string { return r.Primary() }

// CategoryRecord 生成的分類記錄
type CategoryRecord struct {
	Name        string `json:"name"`
	NameEN      string `json:"name_en,omitempty"`
	Description string `json:"description"`
}

func (r *CategoryRecord) Type() ContentType   { return TypeCategory }
func (r *CategoryRecord) DisplayName() string { return strings.TrimSpace(r.Name) }

// PriceUpdateRecord 價格更新研究結果
type PriceUpdateRecord struct {
	IngredientID   string       `json:"ingredient_id,omitempty"`
	IngredientName string       `json:"ingredient_name"`
	Prices         []PriceEntry `json:"prices_by_country"`
}

func (r *PriceUpdateRecord) Type() ContentType   { return TypePriceUpdate }
func (r *PriceUpdateRecord) DisplayName() string { return strings.TrimSpace(r.IngredientName) }

// DecodeRecord 依內容類型解碼單筆記錄
func DecodeRecord(t ContentType, raw json.RawMessage) (Record, error) {
	var rec Record
	switch t {
	case TypeIngredient:
		rec = &IngredientRecord{}
	case TypeCategory:
		rec = &CategoryRecord{}
	case TypePriceUpdate:
		rec = &PriceUpdateRecord{}
	default:
		return nil, fmt.Errorf("unsupported content type %q", t)
	}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", t, err)
	}
	return rec, nil
}

// DecodeRecords 依內容類型解碼多筆記錄，任何一筆失敗即回傳錯誤
func DecodeRecords(t ContentType, raw []json.RawMessage) ([]Record, error) {
	out := make([]Record, 0, len(raw))
	for i, item := range raw {
		rec, err := DecodeRecord(t, item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
