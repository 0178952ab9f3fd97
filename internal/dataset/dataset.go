// Package dataset: CSV 기반 기관/연락처 테이블 로딩과 조회
package dataset

import (
	"errors"
	"strings"
)

const (
	// NameAgencies: 기관 데이터셋 이름
	NameAgencies = "agencies"
	// NameContacts: 연락처 데이터셋 이름
	NameContacts = "contacts"
)

var (
	// ErrUnknownDataset: 등록되지 않은 데이터셋 이름
	ErrUnknownDataset = errors.New("unknown dataset")
	// ErrRowNotFound: id에 해당하는 행이 없음
	ErrRowNotFound = errors.New("row not found")
)

// Column: 열 메타데이터. HasData가 false인 열은 목록에서 제외됩니다.
type Column struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	HasData bool   `json:"hasData"`
}

// Row: 열 키 → 정제된 값 (nil, float64, string)
type Row map[string]any

// ID: 행 식별자의 문자열 형태
func (r Row) ID() string {
	return r.String("id")
}

// String: 값의 문자열 형태. 없으면 빈 문자열
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return formatValue(v)
	}
}

// Table: 한 데이터셋의 열과 행
type Table struct {
	Name      string   `json:"name"`
	Columns   []Column `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"totalRows"`
}

// Definition: 데이터셋별 파일 이름과 정제 규칙
type Definition struct {
	Name     string
	File     string
	Required []string            // 비어 있으면 행을 버리는 열
	Hidden   []string            // 목록 열에서 숨기는 열
	Text     []string            // 숫자 변환 없이 문자열로 유지하는 열
	Unsorted []string            // 정렬 대상에서 제외하는 열
	Search   []string            // 검색 대상 열. 비어 있으면 표시 열 전체
	Clean    map[string]Cleaner // 열별 전처리
}

// Cleaner: 원본 문자열 정규화 함수
type Cleaner func(string) string

// Agencies: agencies.csv 정의
func Agencies() Definition {
	return Definition{
		Name:     NameAgencies,
		File:     "agencies.csv",
		Required: []string{"id", "name"},
		Hidden: []string{
			"total_schools",
			"total_students",
			"mailing_address",
			"grade_span",
			"locale",
			"csa_cbsa",
			"domain_name",
			"physical_address",
			"phone",
			"status",
			"student_teacher_ratio",
			"supervisory_union",
		},
		Text:     []string{"id", "phone", "state_code"},
		Unsorted: []string{"id", "phone", "city"},
		Clean: map[string]Cleaner{
			"phone":   CleanPhone,
			"website": NormalizeWebsite,
		},
	}
}

// Contacts: contacts.csv 정의
func Contacts() Definition {
	return Definition{
		Name:     NameContacts,
		File:     "contacts.csv",
		Required: []string{"id", "first_name", "last_name"},
		Text:     []string{"id", "agency_id", "phone"},
		Unsorted: []string{"id", "phone", "city"},
		Search:   []string{"first_name", "last_name", "email"},
		Clean: map[string]Cleaner{
			"phone":   CleanPhone,
			"email":   strings.ToLower,
			"website": NormalizeWebsite,
		},
	}
}

func contains(list []string, key string) bool {
	for _, item := range list {
		if strings.EqualFold(item, key) {
			return true
		}
	}
	return false
}
