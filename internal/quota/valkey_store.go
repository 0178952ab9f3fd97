package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"
)

const (
	valkeyKeyPrefix = "quota:contact_views:"
	valkeyRecordTTL = 48 * time.Hour
)

// incrementWithinScript: 날짜 비교, 한도 검사, 증가를 한 번에 수행합니다.
// KEYS[1]=레코드 키, ARGV[1]=오늘, ARGV[2]=한도, ARGV[3]=userId, ARGV[4]=TTL(초)
// 반환: {성공 여부(1/0), 카운트}
const incrementWithinScript = `
local count = 0
local raw = redis.call('GET', KEYS[1])
if raw then
  local ok, rec = pcall(cjson.decode, raw)
  if ok and type(rec) == 'table' and rec.date == ARGV[1] then
    count = tonumber(rec.count) or 0
  end
end
local limit = tonumber(ARGV[2])
if count >= limit then
  return {0, count}
end
count = count + 1
redis.call('SET', KEYS[1], cjson.encode({count = count, date = ARGV[1], userId = ARGV[3]}), 'EX', ARGV[4])
return {1, count}
`

// ValkeyStore: 사용자별 레코드를 JSON 문자열로 Valkey에 저장합니다.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
	script *valkey.Lua
}

// NewValkeyStore: Valkey 기반 저장소를 생성합니다.
func NewValkeyStore(client valkey.Client) *ValkeyStore {
	return &ValkeyStore{
		client: client,
		prefix: valkeyKeyPrefix,
		ttl:    valkeyRecordTTL,
		script: valkey.NewLuaScript(incrementWithinScript),
	}
}

func (s *ValkeyStore) key(userID string) string {
	return s.prefix + userID
}

// Load: 레코드를 조회합니다. 키가 없거나 값이 깨져 있으면 (nil, nil)입니다.
func (s *ValkeyStore) Load(ctx context.Context, userID string) (*Record, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.key(userID)).Build())
	raw, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("valkey get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// Save: 레코드를 통째로 덮어씁니다.
func (s *ValkeyStore) Save(ctx context.Context, userID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal quota record: %w", err)
	}
	cmd := s.client.B().Set().Key(s.key(userID)).Value(string(data)).ExSeconds(int64(s.ttl.Seconds())).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set: %w", err)
	}
	return nil
}

// IncrementWithin: Lua 스크립트로 한도 검사와 증가를 원자적으로 처리합니다.
func (s *ValkeyStore) IncrementWithin(ctx context.Context, userID, today string, limit int) (Record, bool, error) {
	resp := s.script.Exec(ctx, s.client,
		[]string{s.key(userID)},
		[]string{today, strconv.Itoa(limit), userID, strconv.FormatInt(int64(s.ttl.Seconds()), 10)},
	)
	values, err := resp.ToArray()
	if err != nil {
		return Record{}, false, fmt.Errorf("valkey eval: %w", err)
	}
	if len(values) != 2 {
		return Record{}, false, fmt.Errorf("valkey eval: unexpected reply length %d", len(values))
	}
	accepted, err := values[0].AsInt64()
	if err != nil {
		return Record{}, false, fmt.Errorf("parse eval status: %w", err)
	}
	count, err := values[1].AsInt64()
	if err != nil {
		return Record{}, false, fmt.Errorf("parse eval count: %w", err)
	}
	return Record{Count: int(count), Date: today, UserID: userID}, accepted == 1, nil
}
