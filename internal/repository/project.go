package repository

import (
	"context"

	"github.com/linskybing/zeera/internal/domain/project"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	CreateProject(ctx context.Context, p *project.Project) error
	GetProjectByID(ctx context.Context, id uint) (project.Project, error)
	SetKeyIfEmpty(ctx context.Context, id uint, key string) (bool, error)
	ListProjectsByUser(ctx context.Context, userID uint, offset, limit int) ([]project.Project, int64, error)

	AddMember(ctx context.Context, member *project.Member) error
	GetMember(ctx context.Context, projectID, userID uint) (project.Member, error)
	ListMembers(ctx context.Context, projectID uint, offset, limit int) ([]project.Member, int64, error)
	CountMembers(ctx context.Context, projectID uint, role string) (int64, error)
	UpdateMemberRole(ctx context.Context, projectID, userID uint, role string) error
	RemoveMember(ctx context.Context, projectID, userID uint) error

	WithTx(tx *gorm.DB) ProjectRepo
}

type DBProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *DBProjectRepo {
	return &DBProjectRepo{
		db: db,
	}
}

func (r *DBProjectRepo) CreateProject(ctx context.Context, p *project.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetProjectByID ignores deleted projects.
func (r *DBProjectRepo) GetProjectByID(ctx context.Context, id uint) (project.Project, error) {
	var p project.Project
	err := r.db.WithContext(ctx).Where("p_id = ? AND is_deleted = ?", id, false).First(&p).Error
	return p, err
}

// SetKeyIfEmpty writes key only while the project has none. It reports whether
// this call set it; callers re-read to get the winning key.
func (r *DBProjectRepo) SetKeyIfEmpty(ctx context.Context, id uint, key string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&project.Project{}).
		Where("p_id = ? AND (project_key IS NULL OR project_key = '')", id).
		Update("project_key", key)
	return res.RowsAffected > 0, res.Error
}

func (r *DBProjectRepo) ListProjectsByUser(ctx context.Context, userID uint, offset, limit int) ([]project.Project, int64, error) {
	var (
		projects []project.Project
		total    int64
	)
	q := r.db.WithContext(ctx).Model(&project.Project{}).
		Joins("JOIN project_members pm ON pm.project_id = projects.p_id").
		Where("pm.user_id = ? AND projects.is_deleted = ?", userID, false).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("projects.created_at DESC").Offset(offset).Limit(limit).Find(&projects).Error
	return projects, total, err
}

func (r *DBProjectRepo) AddMember(ctx context.Context, member *project.Member) error {
	return r.db.WithContext(ctx).Omit("User").Create(member).Error
}

func (r *DBProjectRepo) GetMember(ctx context.Context, projectID, userID uint) (project.Member, error) {
	var m project.Member
	err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	return m, err
}

func (r *DBProjectRepo) ListMembers(ctx context.Context, projectID uint, offset, limit int) ([]project.Member, int64, error) {
	var (
		members []project.Member
		total   int64
	)
	q := r.db.WithContext(ctx).Model(&project.Member{}).Where("project_id = ?", projectID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("User").Order("joined_at ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&members).Error
	return members, total, err
}

// CountMembers counts members of a project, optionally restricted to one role.
func (r *DBProjectRepo) CountMembers(ctx context.Context, projectID uint, role string) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&project.Member{}).Where("project_id = ?", projectID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *DBProjectRepo) UpdateMemberRole(ctx context.Context, projectID, userID uint, role string) error {
	res := r.db.WithContext(ctx).Model(&project.Member{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DBProjectRepo) RemoveMember(ctx context.Context, projectID, userID uint) error {
	res := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&project.Member{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *DBProjectRepo) WithTx(tx *gorm.DB) ProjectRepo {
	if tx == nil {
		return r
	}
	return &DBProjectRepo{
		db: tx,
	}
}
