package repository

import (
	"context"
	"strings"
	"time"

	"github.com/linskybing/zeera/internal/domain/user"
	"gorm.io/gorm"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uint) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	SaveUser(ctx context.Context, u *user.User) error
	SetRefreshToken(ctx context.Context, id uint, token string, lastLogin *time.Time) error
	ListActiveUsers(ctx context.Context, offset, limit int) ([]user.User, int64, error)
	ClearStaleRefreshTokens(ctx context.Context, before time.Time) (int64, error)
	WithTx(tx *gorm.DB) UserRepo
}

type DBUserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *DBUserRepo {
	return &DBUserRepo{
		db: db,
	}
}

func (r *DBUserRepo) CreateUser(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *DBUserRepo) GetUserByID(ctx context.Context, id uint) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).First(&u, "u_id = ?", id).Error
	return u, err
}

// GetUserByEmail matches case-insensitively.
func (r *DBUserRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	return u, err
}

func (r *DBUserRepo) SaveUser(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// SetRefreshToken stores the current refresh token. lastLogin is only written when non-nil.
func (r *DBUserRepo) SetRefreshToken(ctx context.Context, id uint, token string, lastLogin *time.Time) error {
	updates := map[string]any{"refresh_token": token}
	if lastLogin != nil {
		updates["last_login"] = *lastLogin
	}
	return r.db.WithContext(ctx).Model(&user.User{}).Where("u_id = ?", id).Updates(updates).Error
}

func (r *DBUserRepo) ListActiveUsers(ctx context.Context, offset, limit int) ([]user.User, int64, error) {
	var (
		users []user.User
		total int64
	)
	q := r.db.WithContext(ctx).Model(&user.User{}).Where("is_active = ?", true).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name ASC").Order("u_id ASC").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}

// ClearStaleRefreshTokens drops refresh tokens that were last written before the cutoff.
func (r *DBUserRepo) ClearStaleRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&user.User{}).
		Where("refresh_token <> ''").
		Where("updated_at < ?", before).
		UpdateColumn("refresh_token", "")
	return res.RowsAffected, res.Error
}

func (r *DBUserRepo) WithTx(tx *gorm.DB) UserRepo {
	if tx == nil {
		return r
	}
	return &DBUserRepo{
		db: tx,
	}
}
