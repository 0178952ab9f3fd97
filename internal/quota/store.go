package quota

import "context"

// Store: 사용자별 레코드 저장소
// Load는 저장된 레코드가 없으면 (nil, nil)을 반환합니다.
// Save는 기존 레코드를 통째로 교체합니다.
type Store interface {
	Load(ctx context.Context, userID string) (*Record, error)
	Save(ctx context.Context, userID string, rec Record) error
}

// AtomicStore: 한도 검사와 증가를 저장소 단에서 원자적으로 수행할 수 있는 저장소 (strict 모드)
// 반환되는 Record는 성공 시 증가 후 값, 거절 시 증가 전 값입니다.
type AtomicStore interface {
	Store
	IncrementWithin(ctx context.Context, userID, today string, limit int) (Record, bool, error)
}
