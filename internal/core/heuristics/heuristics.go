// Package heuristics 提供食材分類推測與 HORECA 價格合理性檢查。
//
// 規則表為資料而非邏輯：預設值內嵌於 rules.yaml，可透過設定檔替換。
// 分類規則依序比對（第一個命中者優先），特殊名稱規則優先於分類範圍。
package heuristics

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"horeca-ingredients/internal/pkg/common"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Range 價格區間（含邊界）
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains 判斷價格是否落在區間內
func (r Range) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// CategoryRule 分類關鍵字規則
type CategoryRule struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// SpecialRule 特定食材名稱的價格規則
type SpecialRule struct {
	Tag   string   `yaml:"tag"`
	Names []string `yaml:"names"`
	Min   float64  `yaml:"min"`
	Max   float64  `yaml:"max"`
}

// Rules 分類與價格規則表
type Rules struct {
	DefaultTag string           `yaml:"default_tag"`
	Specials   []SpecialRule    `yaml:"specials"`
	Categories []CategoryRule   `yaml:"categories"`
	Ranges     map[string]Range `yaml:"ranges"`
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
)

// Default 回傳內嵌的預設規則表
func Default() *Rules {
	defaultOnce.Do(func() {
		r, err := Parse(embeddedRules)
		if err != nil {
			panic(fmt.Sprintf("embedded heuristics rules are invalid: %v", err))
		}
		defaultRules = r
	})
	return defaultRules
}

// Load 從檔案載入規則表，路徑為空時使用預設值
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 規則表並正規化關鍵字
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if r.DefaultTag == "" {
		r.DefaultTag = "general"
	}
	if _, ok := r.Ranges[r.DefaultTag]; !ok {
		return nil, fmt.Errorf("rules: missing range for default tag %q", r.DefaultTag)
	}
	for i := range r.Categories {
		if _, ok := r.Ranges[r.Categories[i].Tag]; !ok {
			return nil, fmt.Errorf("rules: missing range for tag %q", r.Categories[i].Tag)
		}
		r.Categories[i].Keywords = normalizeAll(r.Categories[i].Keywords)
	}
	for i := range r.Specials {
		s := &r.Specials[i]
		if s.Min > s.Max {
			return nil, fmt.Errorf("rules: special %v has min > max", s.Names)
		}
		s.Names = normalizeAll(s.Names)
	}
	return &r, nil
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := common.NormalizeName(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// GuessCategory 根據名稱推測分類標籤
func (r *Rules) GuessCategory(name string) string {
	n := common.NormalizeName(name)
	if n == "" {
		return r.DefaultTag
	}
	for _, rule := range r.Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(n, kw) {
				return rule.Tag
			}
		}
	}
	return r.DefaultTag
}

// special 回傳名稱命中的特殊規則
func (r *Rules) special(name string) (SpecialRule, bool) {
	n := common.NormalizeName(name)
	if n == "" {
		return SpecialRule{}, false
	}
	for _, s := range r.Specials {
		for _, candidate := range s.Names {
			if strings.Contains(n, candidate) {
				return s, true
			}
		}
	}
	return SpecialRule{}, false
}

// Range 取得名稱與分類對應的價格區間，特殊名稱優先
func (r *Rules) Range(tag, name string) Range {
	if s, ok := r.special(name); ok {
		return Range{Min: s.Min, Max: s.Max}
	}
	if rg, ok := r.Ranges[tag]; ok {
		return rg
	}
	return r.Ranges[r.DefaultTag]
}

// ValidateHorecaPrice 價格是否在 HORECA 合理範圍內（含邊界）
func (r *Rules) ValidateHorecaPrice(price float64, tag, name string) bool {
	if price <= 0 {
		return false
	}
	return r.Range(tag, name).Contains(price)
}

// GuessCategory 使用預設規則推測分類
func GuessCategory(name string) string {
	return Default().GuessCategory(name)
}

// ValidateHorecaPrice 使用預設規則檢查價格
func ValidateHorecaPrice(price float64, tag, name string) bool {
	return Default().ValidateHorecaPrice(price, tag, name)
}
