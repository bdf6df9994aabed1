package common

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName 名稱正規化：轉小寫、去除前後空白、合併連續空白
func NormalizeName(s string) string {
	// cases.Caser 有狀態，不可跨 goroutine 共用
	lower := cases.Lower(language.Spanish).String(s)
	return strings.Join(strings.Fields(lower), " ")
}
