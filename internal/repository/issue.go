package repository

import (
	"context"
	"strings"
	"time"

	"github.com/linskybing/zeera/internal/domain/issue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IssueRepo interface {
	CreateIssue(ctx context.Context, i *issue.Issue) error
	CountByProject(ctx context.Context, projectID uint) (int64, error)
	GetIssueByID(ctx context.Context, id uint, populate issue.Populate) (issue.Issue, error)
	UpdateIssue(ctx context.Context, id uint, version int, fields map[string]any) (int64, error)
	SoftDeleteIssue(ctx context.Context, id, actorID uint, at time.Time) (int64, error)
	SoftDeleteSubtasks(ctx context.Context, parentID, actorID uint, at time.Time) (int64, error)
	ListIssues(ctx context.Context, projectID uint, q issue.ListQuery) ([]issue.Issue, error)
	CountIssues(ctx context.Context, projectID uint, q issue.ListQuery) (int64, error)
	WithTx(tx *gorm.DB) IssueRepo
}

type DBIssueRepo struct {
	db *gorm.DB
}

func NewIssueRepo(db *gorm.DB) *DBIssueRepo {
	return &DBIssueRepo{
		db: db,
	}
}

var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"priorityOrder": "priority_order",
	"dueDate":       "due_date",
}

// SortColumn resolves an allow-listed sort field. Anything else sorts by creation time.
func SortColumn(sortBy string) string {
	if col, ok := sortColumns[sortBy]; ok {
		return col
	}
	return "created_at"
}

// CreateIssue inserts the issue and its label rows. Relations are never written through.
func (r *DBIssueRepo) CreateIssue(ctx context.Context, i *issue.Issue) error {
	return r.db.WithContext(ctx).Omit("Reporter", "Assignee", "Parent", "Project").Create(i).Error
}

// CountByProject counts every issue ever created in the project, soft-deleted included.
func (r *DBIssueRepo) CountByProject(ctx context.Context, projectID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&issue.Issue{}).Where("project_id = ?", projectID).Count(&n).Error
	return n, err
}

func (r *DBIssueRepo) GetIssueByID(ctx context.Context, id uint, populate issue.Populate) (issue.Issue, error) {
	var i issue.Issue
	err := withPopulate(r.db.WithContext(ctx), populate).
		Where("i_id = ? AND is_deleted = ?", id, false).
		First(&i).Error
	return i, err
}

// UpdateIssue applies fields and bumps the version, guarded by the version the
// caller read. Zero rows affected means the issue changed or was deleted meanwhile.
func (r *DBIssueRepo) UpdateIssue(ctx context.Context, id uint, version int, fields map[string]any) (int64, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).Model(&issue.Issue{}).
		Where("i_id = ? AND is_deleted = ? AND version = ?", id, false, version).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *DBIssueRepo) SoftDeleteIssue(ctx context.Context, id, actorID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&issue.Issue{}).
		Where("i_id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true, "deleted_by": actorID, "deleted_at": at})
	return res.RowsAffected, res.Error
}

func (r *DBIssueRepo) SoftDeleteSubtasks(ctx context.Context, parentID, actorID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&issue.Issue{}).
		Where("parent_id = ? AND type = ? AND is_deleted = ?", parentID, issue.TypeSubtask, false).
		Updates(map[string]any{"is_deleted": true, "deleted_by": actorID, "deleted_at": at})
	return res.RowsAffected, res.Error
}

func (r *DBIssueRepo) ListIssues(ctx context.Context, projectID uint, q issue.ListQuery) ([]issue.Issue, error) {
	var issues []issue.Issue
	desc := q.SortOrder != "asc"
	err := withPopulate(r.db.WithContext(ctx), q.Populate).
		Scopes(r.filter(ctx, projectID, q)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: SortColumn(q.SortBy)}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "i_id"}, Desc: desc}).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&issues).Error
	return issues, err
}

func (r *DBIssueRepo) CountIssues(ctx context.Context, projectID uint, q issue.ListQuery) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&issue.Issue{}).Scopes(r.filter(ctx, projectID, q)).Count(&n).Error
	return n, err
}

func (r *DBIssueRepo) filter(ctx context.Context, projectID uint, q issue.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("project_id = ? AND is_deleted = ?", projectID, false)
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.Priority != "" {
			db = db.Where("priority = ?", q.Priority)
		}
		if q.Type != "" {
			db = db.Where("type = ?", q.Type)
		}
		if q.Assignee != nil {
			db = db.Where("assignee_id = ?", *q.Assignee)
		}
		if len(q.Labels) > 0 {
			labelled := r.db.WithContext(ctx).Model(&issue.Label{}).Select("issue_id").Where("name IN ?", q.Labels)
			db = db.Where("i_id IN (?)", labelled)
		}
		if s := strings.TrimSpace(q.Search); s != "" {
			pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
			db = db.Where(
				`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(issue_key) LIKE ? ESCAPE '\')`,
				pattern, pattern, pattern,
			)
		}
		return db
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// withPopulate preloads the requested relations with their projected columns.
// Labels are always loaded.
func withPopulate(db *gorm.DB, populate issue.Populate) *gorm.DB {
	for _, rel := range populate {
		cols := rel.Columns()
		db = db.Preload(rel.Association(), func(tx *gorm.DB) *gorm.DB {
			return tx.Select(cols)
		})
	}
	return db.Preload("LabelRows")
}

func (r *DBIssueRepo) WithTx(tx *gorm.DB) IssueRepo {
	if tx == nil {
		return r
	}
	return &DBIssueRepo{
		db: tx,
	}
}
