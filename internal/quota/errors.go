package quota

import "errors"

var (
	// ErrUnauthenticated: 요청에서 사용자 식별자를 확인할 수 없음
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrIdentityNotFound: 식별자는 있으나 대응하는 사용자 프로필이 없음
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrLimitExceeded: 일일 한도 도달로 증가가 거절됨
	ErrLimitExceeded = errors.New("daily limit exceeded")
)
