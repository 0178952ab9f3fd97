package dataset

import (
	"cmp"
	"slices"
	"strings"
)

const (
	// DefaultPageSize: 페이지 크기 기본값
	DefaultPageSize = 10
	// MaxPageSize: 한 번에 돌려주는 최대 행 수
	MaxPageSize = 100
)

// Query: 검색/정렬/페이지 조건
type Query struct {
	Search   string `form:"search" binding:"max=200"`
	SortBy   string `form:"sort" binding:"max=64"`
	Desc     bool   `form:"desc"`
	Page     int    `form:"page" binding:"gte=0"`
	PageSize int    `form:"pageSize" binding:"gte=0,lte=100"`
}

// Page: 조회 결과 한 페이지
type Page struct {
	Name       string   `json:"name"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows"`
	TotalRows  int      `json:"totalRows"`
	Matched    int      `json:"matched"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}

// Apply: rows에 검색, 정렬, 페이지를 순서대로 적용합니다. 원본 rows는 변경하지 않습니다.
func Apply(table *Table, rows []Row, def Definition, q Query) Page {
	matched := filter(rows, searchColumns(table, def), q.Search)

	if q.SortBy != "" && !contains(def.Unsorted, q.SortBy) {
		slices.SortStableFunc(matched, func(a, b Row) int {
			av, bv := a[q.SortBy], b[q.SortBy]
			if av == nil || bv == nil || !q.Desc {
				return compareValues(av, bv)
			}
			return -compareValues(av, bv)
		})
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)

	totalPages := (len(matched) + size - 1) / size
	page := max(q.Page, 1)
	start := min((page-1)*size, len(matched))
	end := min(start+size, len(matched))

	return Page{
		Name:       table.Name,
		Columns:    table.Columns,
		Rows:       matched[start:end],
		TotalRows:  table.TotalRows,
		Matched:    len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

func searchColumns(table *Table, def Definition) []string {
	if len(def.Search) > 0 {
		return def.Search
	}
	keys := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		keys = append(keys, col.Key)
	}
	return keys
}

func filter(rows []Row, keys []string, term string) []Row {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if term == "" || rowMatches(row, keys, term) {
			out = append(out, row)
		}
	}
	return out
}

func rowMatches(row Row, keys []string, term string) bool {
	for _, key := range keys {
		if strings.Contains(strings.ToLower(row.String(key)), term) {
			return true
		}
	}
	return false
}

// compareValues: nil은 정렬 방향과 무관하게 뒤로, 숫자는 수치 비교, 나머지는 대소문자 무시 문자열 비교
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		return cmp.Compare(af, bf)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return cmp.Compare(strings.ToLower(formatValue(a)), strings.ToLower(formatValue(b)))
}
