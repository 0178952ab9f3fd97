package auth

import "fmt"

// ErrorCode: 인증/신원 오류 코드
type ErrorCode string

const (
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeEmailExists        ErrorCode = "EMAIL_EXISTS"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS" //nolint:gosec // G101: 오류 코드 문자열
	CodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error: 서비스 레벨 에러 (HTTP 레이어에서 status로 매핑)
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

var (
	// ErrUserNotFound: 식별자에 해당하는 사용자가 없음
	ErrUserNotFound = &Error{Code: CodeUserNotFound, Message: "user not found"}
	// ErrInvalidCredentials: 이메일 또는 비밀번호 불일치
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	// ErrEmailExists: 이미 가입된 이메일
	ErrEmailExists = &Error{Code: CodeEmailExists, Message: "email already exists"}
	// ErrRateLimited: 로그인 실패 누적으로 일시 차단
	ErrRateLimited = &Error{Code: CodeRateLimited, Message: "too many login attempts"}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("auth error code=%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("auth error code=%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is: 같은 코드의 Error면 일치로 봅니다.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}
