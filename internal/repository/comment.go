package repository

import (
	"context"

	"github.com/linskybing/zeera/internal/domain/issue"
	"gorm.io/gorm"
)

type CommentRepo interface {
	CreateComment(ctx context.Context, c *issue.Comment) error
	GetCommentByID(ctx context.Context, id uint) (issue.Comment, error)
	ListByIssue(ctx context.Context, issueID uint) ([]issue.Comment, error)
	WithTx(tx *gorm.DB) CommentRepo
}

type DBCommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *DBCommentRepo {
	return &DBCommentRepo{
		db: db,
	}
}

func (r *DBCommentRepo) CreateComment(ctx context.Context, c *issue.Comment) error {
	return r.db.WithContext(ctx).Omit("Author").Create(c).Error
}

func (r *DBCommentRepo) GetCommentByID(ctx context.Context, id uint) (issue.Comment, error) {
	var c issue.Comment
	err := r.db.WithContext(ctx).Preload("Author", selectUserRef).First(&c, "id = ?", id).Error
	return c, err
}

// ListByIssue returns comments oldest first.
func (r *DBCommentRepo) ListByIssue(ctx context.Context, issueID uint) ([]issue.Comment, error) {
	var comments []issue.Comment
	err := r.db.WithContext(ctx).
		Preload("Author", selectUserRef).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func selectUserRef(tx *gorm.DB) *gorm.DB {
	return tx.Select("u_id", "name", "email")
}

func (r *DBCommentRepo) WithTx(tx *gorm.DB) CommentRepo {
	if tx == nil {
		return r
	}
	return &DBCommentRepo{
		db: tx,
	}
}
