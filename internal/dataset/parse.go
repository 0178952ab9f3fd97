package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Parse: CSV를 읽어 Table을 만듭니다. 첫 행은 헤더이며 빈 행은 건너뜁니다.
func Parse(r io.Reader, def Definition) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Name: def.Name, Columns: []Column{}, Rows: []Row{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", def.Name, err)
	}
	keys := headerKeys(header)

	rows := make([]Row, 0, 64)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s record: %w", def.Name, err)
		}
		if blank(record) {
			continue
		}
		if row, ok := buildRow(keys, record, def); ok {
			rows = append(rows, row)
		}
	}

	return &Table{
		Name:      def.Name,
		Columns:   columns(keys, rows, def),
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}

func headerKeys(header []string) []string {
	keys := make([]string, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if i == 0 {
			key = strings.TrimPrefix(key, "\ufeff")
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func buildRow(keys, record []string, def Definition) (Row, bool) {
	raw := make(map[string]string, len(keys))
	for i, key := range keys {
		if i < len(record) {
			raw[key] = strings.TrimSpace(record[i])
		}
	}
	for _, req := range def.Required {
		if raw[req] == "" {
			return nil, false
		}
	}

	row := make(Row, len(keys))
	for _, key := range keys {
		value := raw[key]
		if clean, ok := def.Clean[key]; ok && value != "" {
			value = clean(value)
		}
		if contains(def.Text, key) {
			row[key] = nullable(value)
			continue
		}
		row[key] = CleanValue(value)
	}
	return row, true
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func columns(keys []string, rows []Row, def Definition) []Column {
	cols := make([]Column, 0, len(keys))
	for _, key := range keys {
		if contains(def.Hidden, key) {
			continue
		}
		col := Column{Key: key, Label: FormatHeader(key), HasData: hasData(rows, key)}
		if col.HasData {
			cols = append(cols, col)
		}
	}
	return cols
}

func hasData(rows []Row, key string) bool {
	for _, row := range rows {
		switch v := row[key].(type) {
		case nil:
		case string:
			if v != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// CleanValue: 셀 값을 정제합니다.
// 빈 값은 nil, '-', ':', 공백을 포함하면 문자열 그대로, 쉼표 제거 후 숫자면 float64입니다.
func CleanValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if strings.ContainsAny(trimmed, "-: ") {
		return trimmed
	}
	if num, ok := leadingFloat(strings.ReplaceAll(trimmed, ",", "")); ok {
		return num
	}
	return trimmed
}

var numericPrefix = regexp.MustCompile(`^\+?(\d+\.?\d*|\.\d+)([eE]\+?\d+)?`)

// leadingFloat: 문자열 앞부분의 십진 실수 접두사를 해석합니다 ("12abc" → 12).
func leadingFloat(s string) (float64, bool) {
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(num, 0) {
		return 0, false
	}
	return num, true
}

// FormatHeader: 열 키를 표시용 라벨로 바꿉니다 ("first_name" → "First Name", "stateCode" → "State Code").
func FormatHeader(key string) string {
	var b strings.Builder
	runes := []rune(strings.ReplaceAll(key, "_", " "))
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}

	words := strings.Split(b.String(), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		w := []rune(word)
		words[i] = string(unicode.ToUpper(w[0])) + strings.ToLower(string(w[1:]))
	}
	return strings.Join(words, " ")
}

// CleanPhone: 숫자와 맨 앞의 '+'만 남깁니다.
func CleanPhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeWebsite: 소문자로 바꾸고 스킴이 없으면 https://를 붙입니다.
func NormalizeWebsite(website string) string {
	cleaned := strings.ToLower(strings.TrimSpace(website))
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "http://") || strings.HasPrefix(cleaned, "https://") {
		return cleaned
	}
	return "https://" + cleaned
}

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case fmt.Stringer:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}
