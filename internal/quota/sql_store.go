package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// quotaRow: contact_view_quotas 테이블 행. 사용자당 하나의 레코드만 유지합니다.
type quotaRow struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:64"`
	ViewCount int       `gorm:"column:view_count;not null;default:0"`
	ViewDate  string    `gorm:"column:view_date;size:10;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (quotaRow) TableName() string { return "contact_view_quotas" }

func (r quotaRow) record() *Record {
	return &Record{Count: r.ViewCount, Date: r.ViewDate, UserID: r.UserID}
}

// SQLStore: gorm 기반 레코드 저장소 (PostgreSQL / SQLite)
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore: SQL 저장소를 생성합니다.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EnsureSchema: 테이블을 생성/마이그레이션합니다.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&quotaRow{}); err != nil {
		return fmt.Errorf("migrate contact_view_quotas: %w", err)
	}
	return nil
}

// Load: 레코드를 조회합니다.
func (s *SQLStore) Load(ctx context.Context, userID string) (*Record, error) {
	var row quotaRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select quota row: %w", err)
	}
	return row.record(), nil
}

// Save: user_id 기준 upsert
func (s *SQLStore) Save(ctx context.Context, userID string, rec Record) error {
	row := quotaRow{
		UserID:    userID,
		ViewCount: rec.Count,
		ViewDate:  rec.Date,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"view_count", "view_date", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert quota row: %w", err)
	}
	return nil
}

// IncrementWithin: 조건부 UPDATE 한 문장으로 날짜 리셋/한도 검사/증가를 처리합니다.
// 행이 없으면 INSERT ... ON CONFLICT DO NOTHING 후 재시도합니다.
func (s *SQLStore) IncrementWithin(ctx context.Context, userID, today string, limit int) (Record, bool, error) {
	if limit <= 0 {
		return Record{Date: today, UserID: userID}, false, nil
	}
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < 3; attempt++ {
		// 증가 후 값은 같은 문장의 RETURNING으로 받습니다.
		var updated quotaRow
		res := db.Model(&updated).
			Clauses(clause.Returning{}).
			Where("user_id = ? AND (view_date <> ? OR view_count < ?)", userID, today, limit).
			Updates(map[string]any{
				"view_count": gorm.Expr("CASE WHEN view_date = ? THEN view_count + 1 ELSE 1 END", today),
				"view_date":  today,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return Record{}, false, fmt.Errorf("conditional update: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return *updated.record(), true, nil
		}

		current, err := s.Load(ctx, userID)
		if err != nil {
			return Record{}, false, err
		}
		if current != nil {
			if current.Date == today && current.Count >= limit {
				return *current, false, nil
			}
			// 다른 요청이 날짜를 갱신하는 사이에 끼어든 경우
			continue
		}

		ins := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&quotaRow{
			UserID:    userID,
			ViewCount: 1,
			ViewDate:  today,
			UpdatedAt: time.Now(),
		})
		if ins.Error != nil {
			return Record{}, false, fmt.Errorf("insert quota row: %w", ins.Error)
		}
		if ins.RowsAffected == 1 {
			return Record{Count: 1, Date: today, UserID: userID}, true, nil
		}
	}
	return Record{}, false, fmt.Errorf("quota increment contention for user %s", userID)
}
