// Package dedup 以六個語系名稱欄位比對候選食材與既有目錄。
package dedup

import (
	"strings"
	"sync"

	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"
)

// Existing 既有食材的名稱快照
type Existing = model.IngredientRef

// Match 命中的既有食材與比對方式
type Match struct {
	ID       string
	Name     string
	Field    string
	Compound bool
}

var fieldNames = []string{"name", "name_en", "name_fr", "name_it", "name_pt", "name_la"}

type normalizedName struct {
	field string
	value string
	words map[string]struct{}
}

type entry struct {
	id      string
	display string
	names   []normalizedName
}

// Normalize 名稱正規化（小寫、去空白）
func Normalize(name string) string {
	return common.NormalizeName(name)
}

func normalizeNames(n model.IngredientNames) []normalizedName {
	out := make([]normalizedName, 0, len(fieldNames))
	for i, raw := range n.All() {
		v := Normalize(raw)
		if v == "" {
			continue
		}
		nn := normalizedName{field: fieldNames[i], value: v}
		if words := strings.Fields(v); len(words) > 1 {
			nn.words = make(map[string]struct{}, len(words))
			for _, w := range words {
				nn.words[w] = struct{}{}
			}
		}
		out = append(out, nn)
	}
	return out
}

// Snapshot 批次期間使用的既有名稱快照
type Snapshot struct {
	mu      sync.RWMutex
	entries []entry
}

// NewSnapshot 由既有食材建立快照
func NewSnapshot(existing []Existing) *Snapshot {
	s := &Snapshot{entries: make([]entry, 0, len(existing))}
	for _, e := range existing {
		s.entries = append(s.entries, entry{id: e.ID, display: e.Primary(), names: normalizeNames(e.IngredientNames)})
	}
	return s
}

// Add 將新建立的食材加入快照
func (s *Snapshot) Add(id string, names model.IngredientNames) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{id: id, display: names.Primary(), names: normalizeNames(names)})
}

// Len 快照中的食材數量
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Names 回傳所有食材的主要名稱，最多 limit 筆（limit <= 0 表示不限）
func (s *Snapshot) Names(limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		if e.display == "" {
			continue
		}
		out = append(out, e.display)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindMatch 尋找重複的既有食材。
// 嚴格模式：任一名稱欄位完全相同，或兩個多字名稱互為字詞子集合。
// 寬鬆模式（手動清單預檢）：僅完全相同。
func (s *Snapshot) FindMatch(candidate model.IngredientNames, ultraPermissive bool) (Match, bool) {
	cand := normalizeNames(candidate)
	if len(cand) == 0 {
		return Match{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		for _, c := range cand {
			for _, x := range e.names {
				if c.value == x.value {
					return Match{ID: e.id, Name: e.display, Field: x.field}, true
				}
			}
		}
	}
	if ultraPermissive {
		return Match{}, false
	}

	for _, e := range s.entries {
		for _, c := range cand {
			if c.words == nil {
				continue
			}
			for _, x := range e.names {
				if x.words == nil {
					continue
				}
				if isSubset(c.words, x.words) || isSubset(x.words, c.words) {
					return Match{ID: e.id, Name: e.display, Field: x.field, Compound: true}, true
				}
			}
		}
	}
	return Match{}, false
}

// IsDuplicate 候選是否與快照中的食材重複
func (s *Snapshot) IsDuplicate(candidate model.IngredientNames, ultraPermissive bool) bool {
	_, ok := s.FindMatch(candidate, ultraPermissive)
	return ok
}

// IsDuplicate 對一份既有名稱清單做單次比對
func IsDuplicate(candidate model.IngredientNames, existing []model.IngredientNames, ultraPermissive bool) bool {
	list := make([]Existing, 0, len(existing))
	for _, e := range existing {
		list = append(list, Existing{IngredientNames: e})
	}
	return NewSnapshot(list).IsDuplicate(candidate, ultraPermissive)
}

func isSubset(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for w := range a {
		if _, ok := b[w]; !ok {
			return false
		}
	}
	return true
}
