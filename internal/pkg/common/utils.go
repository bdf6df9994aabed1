package common

import "strings"

// ClampFloat 將數值限制在 [min, max] 範圍內
func ClampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// LimitLength 去除前後空白並截斷至最大長度
func LimitLength(s string, max int) string {
	return Truncate(strings.TrimSpace(s), max)
}
