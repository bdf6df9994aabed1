package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var flatObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

// ParseLenient 依序嘗試：直接解析 → Markdown 區塊擷取 → 逐一擷取扁平物件。
// 若結果為包含 listKey 陣列的物件（例如 {"images": [...]}），會展開該陣列。
func ParseLenient(raw, listKey string) ([]json.RawMessage, error) {
	text := strings.TrimSpace(raw)

	if records, err := decodeRecords(text); err == nil {
		return unwrapList(records, listKey), nil
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if records, err := decodeRecords(Sanitize(m[1])); err == nil {
			return unwrapList(records, listKey), nil
		}
	}

	var out []json.RawMessage
	for _, obj := range flatObjectPattern.FindAllString(Sanitize(text), -1) {
		if json.Valid([]byte(obj)) {
			out = append(out, json.RawMessage(obj))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: lenient parse failed", ErrNoJSONFound)
	}
	return out, nil
}

func unwrapList(records []json.RawMessage, listKey string) []json.RawMessage {
	if listKey == "" || len(records) != 1 {
		return records
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(records[0], &wrapper); err != nil {
		return records
	}
	inner, ok := wrapper[listKey]
	if !ok {
		return records
	}
	var list []json.RawMessage
	if err := json.Unmarshal(inner, &list); err != nil {
		return records
	}
	return list
}
