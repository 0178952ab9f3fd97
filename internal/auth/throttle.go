package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const loginFailKeyPrefix = "auth:login_fail:"

// LoginThrottle: 클라이언트 IP별 로그인 실패 횟수를 Valkey에 누적해 차단합니다.
// 여러 인스턴스가 같은 카운터를 공유합니다.
type LoginThrottle struct {
	client      valkey.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle: 기본값 15분 동안 5회 실패 시 차단
func NewLoginThrottle(client valkey.Client) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxAttempts: 5,
		window:      15 * time.Minute,
	}
}

// Allowed: 로그인 시도 허용 여부와 차단 해제까지 남은 시간
func (l *LoginThrottle) Allowed(ctx context.Context, ip string) (bool, time.Duration, error) {
	key := loginFailKeyPrefix + ip
	count, err := l.client.Do(ctx, l.client.B().Get().Key(key).Build()).AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return true, 0, nil
		}
		return false, 0, fmt.Errorf("get login failures: %w", err)
	}
	if count < l.maxAttempts {
		return true, 0, nil
	}

	ttl, err := l.client.Do(ctx, l.client.B().Ttl().Key(key).Build()).AsInt64()
	if err != nil {
		return false, l.window, nil
	}
	return false, time.Duration(max(ttl, 0)) * time.Second, nil
}

// RecordFailure: 실패 횟수를 올리고 첫 실패 시 만료를 설정합니다.
func (l *LoginThrottle) RecordFailure(ctx context.Context, ip string) (int64, error) {
	key := loginFailKeyPrefix + ip
	count, err := l.client.Do(ctx, l.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("incr login failures: %w", err)
	}
	if count == 1 {
		if err := l.client.Do(ctx, l.client.B().Expire().Key(key).Seconds(int64(l.window.Seconds())).Build()).Error(); err != nil {
			return count, fmt.Errorf("expire login failures: %w", err)
		}
	}
	return count, nil
}

// RecordSuccess: 성공 시 카운터 초기화
func (l *LoginThrottle) RecordSuccess(ctx context.Context, ip string) {
	_ = l.client.Do(ctx, l.client.B().Del().Key(loginFailKeyPrefix+ip).Build()).Error()
}
