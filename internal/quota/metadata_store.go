package quota

import (
	"context"
	"fmt"
	"maps"

	"github.com/goccy/go-json"
)

// MetadataKey: 사용자 private metadata 안에서 레코드가 저장되는 키
const MetadataKey = "dailyContactLimit"

// MetadataSource: 사용자별 private metadata 읽기/전체 덮어쓰기 제공자
type MetadataSource interface {
	PrivateMetadata(ctx context.Context, userID string) (map[string]any, error)
	ReplacePrivateMetadata(ctx context.Context, userID string, metadata map[string]any) error
}

// MetadataStore: 신원 제공자의 private metadata에 레코드를 보관합니다.
// 부분 패치가 없으므로 다른 키를 병합한 뒤 전체를 덮어씁니다.
type MetadataStore struct {
	source MetadataSource
}

// NewMetadataStore: metadata 기반 저장소를 생성합니다.
func NewMetadataStore(source MetadataSource) *MetadataStore {
	return &MetadataStore{source: source}
}

// Load: metadata의 dailyContactLimit 값을 레코드로 해석합니다.
// 값이 없거나 형식이 맞지 않으면 (nil, nil)입니다.
func (s *MetadataStore) Load(ctx context.Context, userID string) (*Record, error) {
	md, err := s.source.PrivateMetadata(ctx, userID)
	if err != nil {
		return nil, err
	}
	raw, ok := md[MetadataKey]
	if !ok || raw == nil {
		return nil, nil
	}
	return decodeRecord(raw), nil
}

// Save: 다른 metadata 키를 보존한 채 레코드를 기록합니다.
func (s *MetadataStore) Save(ctx context.Context, userID string, rec Record) error {
	current, err := s.source.PrivateMetadata(ctx, userID)
	if err != nil {
		return err
	}
	merged := make(map[string]any, len(current)+1)
	maps.Copy(merged, current)
	merged[MetadataKey] = map[string]any{
		"count":  rec.Count,
		"date":   rec.Date,
		"userId": rec.UserID,
	}
	if err := s.source.ReplacePrivateMetadata(ctx, userID, merged); err != nil {
		return fmt.Errorf("replace private metadata: %w", err)
	}
	return nil
}

func decodeRecord(raw any) *Record {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}
