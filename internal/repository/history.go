package repository

import (
	"context"

	"github.com/linskybing/zeera/internal/domain/issue"
	"gorm.io/gorm"
)

// HistoryRepo is append-only: there is no update or delete.
type HistoryRepo interface {
	CreateHistory(ctx context.Context, entries []issue.History) error
	ListByIssue(ctx context.Context, issueID uint) ([]issue.History, error)
	WithTx(tx *gorm.DB) HistoryRepo
}

type DBHistoryRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) *DBHistoryRepo {
	return &DBHistoryRepo{
		db: db,
	}
}

func (r *DBHistoryRepo) CreateHistory(ctx context.Context, entries []issue.History) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Actor").Create(&entries).Error
}

// ListByIssue returns entries newest first with the actor resolved.
func (r *DBHistoryRepo) ListByIssue(ctx context.Context, issueID uint) ([]issue.History, error) {
	var entries []issue.History
	err := r.db.WithContext(ctx).
		Preload("Actor", selectUserRef).
		Where("issue_id = ?", issueID).
		Order("created_at DESC").Order("id DESC").
		Find(&entries).Error
	return entries, err
}

func (r *DBHistoryRepo) WithTx(tx *gorm.DB) HistoryRepo {
	if tx == nil {
		return r
	}
	return &DBHistoryRepo{
		db: tx,
	}
}
