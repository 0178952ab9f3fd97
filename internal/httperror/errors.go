// Package httperror: 도메인 오류를 HTTP 상태와 응답 본문으로 변환
package httperror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/park285/agency-dashboard/internal/auth"
	"github.com/park285/agency-dashboard/internal/dataset"
	"github.com/park285/agency-dashboard/internal/logging"
	"github.com/park285/agency-dashboard/internal/quota"
)

// ErrorCode: API 오류 코드
type ErrorCode string

const (
	ErrorCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrorCodeConflict        ErrorCode = "CONFLICT"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeLimitExceeded   ErrorCode = "DAILY_LIMIT_EXCEEDED"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorCodeBadCredentials  ErrorCode = "INVALID_CREDENTIALS" //nolint:gosec // G101: 오류 코드 문자열
	ErrorCodeUnknownResource ErrorCode = "UNKNOWN_DATASET"
)

// 계약상 고정된 메시지
const (
	MessageUnauthorized  = "Unauthorized"
	MessageUserNotFound  = "User not found"
	MessageLimitExceeded = "Daily limit exceeded"
)

// ErrorResponse: 일반 API 오류 응답 본문
type ErrorResponse struct {
	Error     string         `json:"error"`
	ErrorCode string         `json:"error_code,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Error: 내부 표준 오류 타입
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// FromError: 오류를 내부 오류 타입으로 변환합니다. 알 수 없는 오류는 원문 메시지의 500입니다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, quota.ErrUnauthenticated):
		return &Error{Code: ErrorCodeUnauthorized, Status: http.StatusUnauthorized, Message: MessageUnauthorized}
	case errors.Is(err, quota.ErrIdentityNotFound), errors.Is(err, auth.ErrUserNotFound):
		return &Error{Code: ErrorCodeUserNotFound, Status: http.StatusNotFound, Message: MessageUserNotFound}
	case errors.Is(err, quota.ErrLimitExceeded):
		return &Error{Code: ErrorCodeLimitExceeded, Status: http.StatusForbidden, Message: MessageLimitExceeded}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &Error{Code: ErrorCodeBadCredentials, Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	case errors.Is(err, auth.ErrEmailExists):
		return &Error{Code: ErrorCodeConflict, Status: http.StatusConflict, Message: "Email already registered"}
	case errors.Is(err, auth.ErrRateLimited):
		return &Error{Code: ErrorCodeRateLimited, Status: http.StatusTooManyRequests, Message: "Too many attempts"}
	case errors.Is(err, dataset.ErrUnknownDataset):
		return &Error{Code: ErrorCodeUnknownResource, Status: http.StatusNotFound, Message: "Dataset not found"}
	case errors.Is(err, dataset.ErrRowNotFound):
		return &Error{Code: ErrorCodeNotFound, Status: http.StatusNotFound, Message: "Record not found"}
	case errors.As(err, &validationErrors):
		return NewValidationError(err)
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) && authErr.Code == auth.CodeInvalidInput {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

// NewInternalError: 내부 오류
func NewInternalError(message string) *Error {
	return &Error{Code: ErrorCodeInternal, Status: http.StatusInternalServerError, Message: message}
}

// NewInvalidInput: 입력 형식 오류
func NewInvalidInput(message string) *Error {
	return &Error{Code: ErrorCodeInvalidInput, Status: http.StatusBadRequest, Message: message}
}

// NewValidationError: 필드 검증 오류
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusBadRequest,
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewBindError: 요청 바인딩 실패. 필드 검증 실패가 아니면 본문 형식 오류로 봅니다.
func NewBindError(err error) *Error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}
	apiErr := NewInvalidInput("Invalid request")
	apiErr.Details = validationDetails(err)
	return apiErr
}

// Response: 오류를 상태 코드와 응답 본문으로 변환합니다.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}
	return apiErr.Status, ErrorResponse{
		Error:     apiErr.Message,
		ErrorCode: string(apiErr.Code),
		RequestID: requestID,
		Details:   apiErr.Details,
	}
}

// Abort: 오류 응답을 쓰고 핸들러 체인을 중단합니다.
func Abort(c *gin.Context, err error) {
	status, body := Response(err, logging.RequestIDFrom(c.Request.Context()))
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// FieldError: 필드 오류 상세
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Tag()})
		}
		return map[string]any{"errors": fields}
	}
	return map[string]any{"errors": []FieldError{{Field: "body", Message: err.Error()}}}
}
