// Package parser 從 LLM 回應中防禦性地擷取 JSON 記錄。
//
// 處理流程：去除 Markdown 區塊 → 清理控制字元 → 修補 description 內的引號 →
// 括號平衡診斷 → 解析（失敗時擷取第一段 JSON，再失敗則進行超級清理後重試）。
// 可恢復的輸入不會回傳錯誤；只有在所有嘗試都找不到 JSON 時才失敗。
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"horeca-ingredients/internal/core/heuristics"
	"horeca-ingredients/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrNoJSONFound 所有恢復策略都無法取得 JSON
var ErrNoJSONFound = errors.New("no JSON content found")

const previewLength = 500

var (
	fencePattern      = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)\\s*```")
	controlPattern    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	whitespacePattern = regexp.MustCompile(`\s{2,}`)
	descriptionKey    = regexp.MustCompile(`"description"\s*:\s*"`)
	escapedBreaks     = regexp.MustCompile(`\\[nrt]`)
)

// Parser 帶有價格規則的解析器
type Parser struct {
	rules *heuristics.Rules
}

// New 建立解析器，rules 為 nil 時使用預設規則
func New(rules *heuristics.Rules) *Parser {
	if rules == nil {
		rules = heuristics.Default()
	}
	return &Parser{rules: rules}
}

// Parse 使用預設規則解析
func Parse(raw string) ([]json.RawMessage, error) {
	return New(nil).Parse(raw)
}

// Parse 解析 AI 回應為記錄陣列；單一物件會被包成單元素陣列
func (p *Parser) Parse(raw string) ([]json.RawMessage, error) {
	text := StripFence(raw)
	text = Sanitize(text)
	text = EscapeDescriptionQuotes(text)

	if braces, brackets := CheckBalance(text); braces != 0 || brackets != 0 {
		common.LogWarn("JSON 括號不平衡",
			zap.Int("braces", braces),
			zap.Int("brackets", brackets),
		)
	}

	records, err := decodeRecords(text)
	if err != nil {
		if sub, ok := ExtractFirstJSON(text); ok {
			records, err = decodeRecords(sub)
		}
	}
	if err != nil {
		cleaned := UltraClean(text)
		records, err = decodeRecords(cleaned)
		if err != nil {
			if sub, ok := ExtractFirstJSON(cleaned); ok {
				records, err = decodeRecords(sub)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v (original: %q, cleaned: %q)",
				ErrNoJSONFound, err,
				common.Truncate(raw, previewLength),
				common.Truncate(cleaned, previewLength),
			)
		}
		common.LogDebug("JSON 經超級清理後解析成功")
	}

	p.FlagSuspiciousPrices(records)
	return records, nil
}

func decodeRecords(text string) ([]json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty input")
	}

	var raw json.RawMessage
	if err := common.ParseJSON(text, &raw); err != nil {
		return nil, err
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		return []json.RawMessage{raw}, nil
	default:
		return nil, fmt.Errorf("expected JSON array or object, got %q", common.Truncate(string(raw), 20))
	}
}

// StripFence 去除外層 Markdown 程式碼區塊，沒有時原樣回傳
func StripFence(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Sanitize 將換行與控制字元轉為空白，並合併字串常值以外的連續空白
func Sanitize(s string) string {
	s = controlPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(collapseOutsideStrings(s))
}

// collapseOutsideStrings 字串追蹤方式與 CheckBalance 相同；字串內容原樣保留
func collapseOutsideStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped, space := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == ' ' {
			if !space {
				b.WriteByte(c)
			}
			space = true
			continue
		}
		space = false
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeDescriptionQuotes 修補 "description" 字串值中未轉義的雙引號。
// 對合法 JSON 不做任何變更。
func EscapeDescriptionQuotes(s string) string {
	locs := descriptionKey.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	last := 0
	for _, loc := range locs {
		start := loc[1]
		if start < last {
			continue
		}
		b.WriteString(s[last:start])
		i := start
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			if c == '"' {
				if isStringTerminator(s, i+1) {
					break
				}
				b.WriteString(`\"`)
				i++
				continue
			}
			b.WriteByte(c)
			i++
		}
		last = i
	}
	b.WriteString(s[last:])
	return b.String()
}

// isStringTerminator 判斷位於 pos 之前的引號是否結束物件中的字串值
func isStringTerminator(s string, pos int) bool {
	j := skipSpaces(s, pos)
	if j >= len(s) {
		return true
	}
	switch s[j] {
	case '}', ']':
		return true
	case ',':
		k := skipSpaces(s, j+1)
		return k >= len(s) || s[k] == '"' || s[k] == '}' || s[k] == ']'
	}
	return false
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// CheckBalance 回傳字串外的 {} 與 [] 差值，僅供診斷
func CheckBalance(s string) (braces, brackets int) {
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
	}
	return braces, brackets
}

// ExtractFirstJSON 擷取第一段完整的頂層 [...] 或 {...}
func ExtractFirstJSON(s string) (string, bool) {
	start := strings.IndexAny(s, "[{")
	for start >= 0 {
		if end, ok := matchClose(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexAny(s[start+1:], "[{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchClose(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// UltraClean 移除所有 C0 控制字元與字面上的 \n \r \t 轉義序列
func UltraClean(s string) string {
	s = controlPattern.ReplaceAllString(s, "")
	s = escapedBreaks.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
