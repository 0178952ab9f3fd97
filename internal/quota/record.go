// Package quota: 사용자별 일일 연락처 열람 한도를 추적합니다.
package quota

import "time"

// DefaultDailyLimit: 모든 사용자에게 공통으로 적용되는 일일 열람 한도
const DefaultDailyLimit = 50

// DateLayout: 레코드 날짜 문자열 형식 (YYYY-MM-DD)
const DateLayout = time.DateOnly

// Record: 한 사용자의 당일 열람 소비량
type Record struct {
	Count  int    `json:"count"`
	Date   string `json:"date"`
	UserID string `json:"userId"`
}

// Status: 조회 시점의 한도 상태
type Status struct {
	UserID      string `json:"userId"`
	Count       int    `json:"count"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
	HasExceeded bool   `json:"hasExceeded"`
	Date        string `json:"date"`
}

// IncrementResult: 증가 시도 결과. 거절된 경우 증가 전 수치를 담습니다.
type IncrementResult struct {
	Success     bool   `json:"success"`
	Count       int    `json:"count"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
	HasExceeded bool   `json:"hasExceeded"`
	Date        string `json:"date"`
}

// effectiveCount: 저장된 레코드를 오늘 기준으로 정규화한 카운트
// 날짜가 다르면 논리적으로 0으로 취급합니다.
func effectiveCount(rec *Record, today string) int {
	if rec == nil || rec.Date != today || rec.Count < 0 {
		return 0
	}
	return rec.Count
}

func remaining(limit, count int) int {
	return max(0, limit-count)
}
