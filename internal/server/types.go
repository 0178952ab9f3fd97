// Package server: HTTP 서버 요청/응답 타입 정의
package server

import (
	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/dataset"
	"github.com/park285/agency-dashboard/internal/quota"
)

// ===== Common Types =====

// ErrorResponse: 계약상 고정된 오류 응답 ({"error": "..."})
type ErrorResponse struct {
	Error string `json:"error" example:"Unauthorized"`
}

// StatusResponse: 공통 상태 응답
type StatusResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty" example:"Logout successful"`
}

// ===== Contact Limits Types =====

// IncrementResponse: POST /contact-limits 성공 응답
type IncrementResponse struct {
	Success   bool `json:"success"`
	Count     int  `json:"count"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
}

// RefusalResponse: 한도 초과 응답 (403)
type RefusalResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message" example:"Daily limit exceeded"`
}

// ResetResponse: DELETE /contact-limits 응답
type ResetResponse struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Date      string `json:"date"`
}

// ===== Auth Types =====

// LoginRequest: 로그인 요청
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest: 가입 요청 (비운영 환경 전용)
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"displayName" binding:"max=100"`
}

// LoginResponse: 로그인 응답. Token은 Authorization: Bearer 로도 사용 가능
type LoginResponse struct {
	Status string     `json:"status" example:"ok"`
	Token  string     `json:"token"`
	User   *auth.User `json:"user"`
}

// ===== Dataset Types =====

// ContactsResponse: 연락처 목록 (한도 수만큼, 연락처 열 가림)
type ContactsResponse struct {
	dataset.Page
	Quota quota.Status `json:"quota"`
}

// RevealResponse: 연락처 열람 결과
type RevealResponse struct {
	Success bool              `json:"success"`
	Quota   IncrementResponse `json:"quota"`
	Contact dataset.Row       `json:"contact"`
	Agency  dataset.Row       `json:"agency,omitempty"`
}
