package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit 價格單位，僅允許 kg / litre / g
type Unit string

const (
	UnitKg    Unit = "kg"
	UnitLitre Unit = "litre"
	UnitGram  Unit = "g"
)

// ParseUnit 將單位字串正規化為 kg / litre / g，無法辨識時為 kg
func ParseUnit(raw string) Unit {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimLeft(u, "€$£/ ")
	u = strings.TrimSuffix(u, ".")
	switch u {
	case "l", "lt", "litre", "liter", "litro", "litros", "litres", "liters":
		return UnitLitre
	case "g", "gr", "gramo", "gramos", "gram", "grams":
		return UnitGram
	default:
		return UnitKg
	}
}

// PerKg 換算為每公斤價格；一公升視為一公斤
func (u Unit) PerKg(amount float64) float64 {
	if u == UnitGram {
		return amount * 1000
	}
	return amount
}

// IngredientNames 六個語系名稱欄位（name_la 為拉丁美洲地區同義詞）
type IngredientNames struct {
	Name   string `json:"name" db:"name"`
	NameEN string `json:"name_en" db:"name_en"`
	NameFR string `json:"name_fr" db:"name_fr"`
	NameIT string `json:"name_it" db:"name_it"`
	NamePT string `json:"name_pt" db:"name_pt"`
	NameLA string `json:"name_la" db:"name_la"`
}

// All 依固定順序回傳所有名稱欄位
func (n IngredientNames) All() []string {
	return []string{n.Name, n.NameEN, n.NameFR, n.NameIT, n.NamePT, n.NameLA}
}

// Primary 回傳第一個非空名稱
func (n IngredientNames) Primary() string {
	for _, name := range n.All() {
		if s := strings.TrimSpace(name); s != "" {
			return s
		}
	}
	return ""
}

// IngredientRef 食材 ID 與名稱，用於重複比對快照
type IngredientRef struct {
	ID string `json:"id" db:"id"`
	IngredientNames
}

// Ingredient 食材主檔
type Ingredient struct {
	ID string `json:"id" db:"id"`
	IngredientNames
	Description string    `json:"description" db:"description"`
	CategoryID  *string   `json:"category_id,omitempty" db:"category_id"`
	Season      string    `json:"season" db:"season"`
	Origin      string    `json:"origin" db:"origin"`
	Shrinkage   float64   `json:"shrinkage" db:"shrinkage"`
	Yield       float64   `json:"yield" db:"yield_percent"`
	Popularity  int       `json:"popularity" db:"popularity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Category 食材分類
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	NameEN      string    `json:"name_en" db:"name_en"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Country 國家
type Country struct {
	ID       string `json:"id" db:"id"`
	Code     string `json:"code" db:"code"`
	Name     string `json:"name" db:"name"`
	Currency string `json:"currency" db:"currency"`
}

// Price 食材在某國的價格
type Price struct {
	ID              string          `json:"id" db:"id"`
	IngredientID    string          `json:"ingredient_id" db:"ingredient_id"`
	CountryID       string          `json:"country_id" db:"country_id"`
	Amount          decimal.Decimal `json:"price" db:"price"`
	Unit            Unit            `json:"unit" db:"unit"`
	SeasonVariation string          `json:"season_variation" db:"season_variation"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// NutritionalInfo 營養資訊（每 100g）
type NutritionalInfo struct {
	ID           string  `json:"id" db:"id"`
	IngredientID string  `json:"ingredient_id" db:"ingredient_id"`
	Calories     float64 `json:"calories" db:"calories"`
	Protein      float64 `json:"protein" db:"protein"`
	Carbs        float64 `json:"carbs" db:"carbs"`
	Fat          float64 `json:"fat" db:"fat"`
	Fiber        float64 `json:"fiber" db:"fiber"`
	Vitamins     string  `json:"vitamins" db:"vitamins"`
}

// Use 料理用途
type Use struct {
	ID           string `json:"id" db:"id"`
	IngredientID string `json:"ingredient_id" db:"ingredient_id"`
	Description  string `json:"description" db:"description"`
}

// Recipe 相關食譜
type Recipe struct {
	ID           string `json:"id" db:"id"`
	IngredientID string `json:"ingredient_id" db:"ingredient_id"`
	Name         string `json:"name" db:"name"`
	Type         string `json:"type" db:"recipe_type"`
	Difficulty   string `json:"difficulty" db:"difficulty"`
	Time         string `json:"time" db:"prep_time"`
}

// Variety 品種
type Variety struct {
	ID           string `json:"id" db:"id"`
	IngredientID string `json:"ingredient_id" db:"ingredient_id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
}

// RealImage 食材實拍圖片
type RealImage struct {
	ID           string    `json:"id" db:"id"`
	IngredientID string    `json:"ingredient_id" db:"ingredient_id"`
	URL          string    `json:"url" db:"url"`
	Caption      string    `json:"caption" db:"caption"`
	Category     string    `json:"category" db:"category"`
	Approved     bool      `json:"approved" db:"approved"`
	Source       string    `json:"source" db:"source"`
	Votes        int       `json:"votes" db:"votes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AuditEntry 審計日誌
type AuditEntry struct {
	ID        string    `json:"id" db:"id"`
	Action    string    `json:"action" db:"action"`
	UserID    string    `json:"user_id" db:"user_id"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreatedIngredient 新建立的食材，供圖片研究階段使用
type CreatedIngredient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
