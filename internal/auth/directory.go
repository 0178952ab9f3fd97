package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User: dashboard_users 테이블 매핑 (password_hash와 private_metadata는 API로 노출하지 않음)
type User struct {
	ID              string            `gorm:"column:id;primaryKey;size:36" json:"id"`
	Email           string            `gorm:"column:email;uniqueIndex;size:254;not null" json:"email"`
	PasswordHash    string            `gorm:"column:password_hash;not null" json:"-"`
	DisplayName     string            `gorm:"column:display_name" json:"displayName"`
	PrivateMetadata datatypes.JSONMap `gorm:"column:private_metadata" json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (User) TableName() string { return "dashboard_users" }

// credentialRules: 가입 입력 검증 규칙
type credentialRules struct {
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,min=8,max=72"`
	DisplayName string `validate:"max=100"`
}

// Directory: 사용자 계정과 사용자별 private metadata 저장소
type Directory struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDirectory: gorm 기반 사용자 디렉터리를 생성합니다.
func NewDirectory(db *gorm.DB, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// AutoMigrate: dashboard_users 테이블을 준비합니다.
func (d *Directory) AutoMigrate(ctx context.Context) error {
	if err := d.db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("migrate dashboard_users: %w", err)
	}
	return nil
}

// CreateUser: 신규 사용자를 등록합니다.
func (d *Directory) CreateUser(ctx context.Context, email, password, displayName string) (*User, error) {
	rules := credentialRules{
		Email:       normalizeEmail(email),
		Password:    password,
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := d.validate.StructCtx(ctx, rules); err != nil {
		return nil, newError(CodeInvalidInput, "invalid email/password/displayName", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, newError(CodeInternal, "password hash failed", err)
	}

	var existing int64
	if err := d.db.WithContext(ctx).Model(&User{}).Where("email = ?", rules.Email).Count(&existing).Error; err != nil {
		return nil, newError(CodeInternal, "failed to query user", err)
	}
	if existing > 0 {
		return nil, ErrEmailExists
	}

	user := &User{
		ID:              uuid.NewString(),
		Email:           rules.Email,
		PasswordHash:    string(hash),
		DisplayName:     rules.DisplayName,
		PrivateMetadata: datatypes.JSONMap{},
	}
	if err := d.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, newError(CodeInternal, "failed to create user", err)
	}

	d.logger.InfoContext(ctx, "user_created", slog.String("user_id", user.ID))
	return user, nil
}

// EnsureUser: 이메일이 없으면 생성하고, 있으면 기존 사용자를 반환합니다.
func (d *Directory) EnsureUser(ctx context.Context, email, password, displayName string) (*User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(CodeInternal, "failed to query user", err)
	}
	return d.CreateUser(ctx, email, password, displayName)
}

// Authenticate: 이메일/비밀번호를 확인합니다.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, newError(CodeInternal, "failed to query user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser: ID로 사용자를 조회합니다.
func (d *Directory) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := d.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, newError(CodeInternal, "failed to query user", err)
	}
	return &user, nil
}

// PrivateMetadata: 사용자 private metadata 사본을 반환합니다.
func (d *Directory) PrivateMetadata(ctx context.Context, userID string) (map[string]any, error) {
	user, err := d.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	md := make(map[string]any, len(user.PrivateMetadata))
	maps.Copy(md, user.PrivateMetadata)
	return md, nil
}

// ReplacePrivateMetadata: private metadata 전체를 덮어씁니다. 부분 패치는 지원하지 않습니다.
func (d *Directory) ReplacePrivateMetadata(ctx context.Context, userID string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	res := d.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("private_metadata", datatypes.JSONMap(metadata))
	if res.Error != nil {
		return newError(CodeInternal, "failed to update private metadata", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
