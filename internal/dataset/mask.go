package dataset

import (
	"maps"
	"strings"
)

// MaskedColumns: 열람 전 목록에서 가리는 연락처 열
var MaskedColumns = []string{"email", "phone"}

// Mask: 지정 열을 가린 행 복사본을 반환합니다.
func Mask(rows []Row, keys ...string) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		masked := maps.Clone(row)
		for _, key := range keys {
			if v := row.String(key); v != "" {
				masked[key] = maskValue(key, v)
			}
		}
		out[i] = masked
	}
	return out
}

func maskValue(key, value string) string {
	switch key {
	case "email":
		local, domain, ok := strings.Cut(value, "@")
		if !ok || local == "" {
			return "***"
		}
		return string([]rune(local)[:1]) + "***@" + domain
	case "phone":
		if len(value) <= 4 {
			return "***"
		}
		return "***" + value[len(value)-4:]
	default:
		return "***"
	}
}
