package application

import (
	"context"
	"errors"
	"strings"

	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	Repos *repository.Repos
}

func NewProjectService(repos *repository.Repos) *ProjectService {
	return &ProjectService{
		Repos: repos,
	}
}

// CreateProject creates the project and makes the creator its admin in one transaction.
func (s *ProjectService) CreateProject(ctx context.Context, creatorID uint, input project.CreateProjectInput) (*project.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errs.Validation("project name is required")
	}
	if len(name) > 100 {
		return nil, errs.Validation("project name must be at most 100 characters")
	}

	key := strings.ToUpper(strings.TrimSpace(input.Key))
	if key == "" {
		key = project.GenerateKey(name)
	} else if !project.ValidKey(key) {
		return nil, errs.Validation("project key must be 2-10 uppercase letters or digits")
	}

	p := &project.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Key:         key,
		CreatedBy:   creatorID,
	}
	err := s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		if err := tx.Project.CreateProject(ctx, p); err != nil {
			return err
		}
		return tx.Project.AddMember(ctx, &project.Member{
			ProjectID: p.PID,
			UserID:    creatorID,
			Role:      project.RoleAdmin,
		})
	})
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	p.MemberCount = 1
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id uint) (*project.Project, error) {
	p, err := s.Repos.Project.GetProjectByID(ctx, id)
	if err != nil {
		return nil, errs.FromStore(err, ErrProjectNotFound)
	}
	count, err := s.Repos.Project.CountMembers(ctx, id, "")
	if err != nil {
		return nil, errs.Internal(err)
	}
	p.MemberCount = count
	return &p, nil
}

func (s *ProjectService) ListUserProjects(ctx context.Context, userID uint, page, limit int) ([]project.Project, response.Pagination, error) {
	if err := validatePage(page, limit); err != nil {
		return nil, response.Pagination{}, err
	}
	projects, total, err := s.Repos.Project.ListProjectsByUser(ctx, userID, offset(page, limit), limit)
	if err != nil {
		return nil, response.Pagination{}, errs.Internal(err)
	}
	return projects, response.NewPagination(page, limit, total), nil
}

// MemberRole returns the caller's role in the project, or "" when not a member.
func (s *ProjectService) MemberRole(ctx context.Context, projectID, userID uint) (string, error) {
	m, err := s.Repos.Project.GetMember(ctx, projectID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errs.Internal(err)
	}
	return m.Role, nil
}

func (s *ProjectService) resolveUser(ctx context.Context, input project.AddMemberInput) (user.User, error) {
	var (
		u   user.User
		err error
	)
	switch {
	case input.UserID != 0:
		u, err = s.Repos.User.GetUserByID(ctx, input.UserID)
	case strings.TrimSpace(input.Email) != "":
		u, err = s.Repos.User.GetUserByEmail(ctx, input.Email)
	default:
		return user.User{}, errs.Validation("userId or email is required")
	}
	if err != nil {
		return user.User{}, errs.FromStore(err, ErrUserNotFound)
	}
	if !u.IsActive {
		return user.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *ProjectService) AddMember(ctx context.Context, projectID uint, input project.AddMemberInput) (*project.Member, error) {
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = project.RoleMember
	}
	if !project.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if _, err := s.Repos.Project.GetProjectByID(ctx, projectID); err != nil {
		return nil, errs.FromStore(err, ErrProjectNotFound)
	}
	u, err := s.resolveUser(ctx, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.Repos.Project.GetMember(ctx, projectID, u.UID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Internal(err)
	}

	m := &project.Member{ProjectID: projectID, UserID: u.UID, Role: role}
	if err := s.Repos.Project.AddMember(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, errs.Internal(err)
	}
	m.User = &u
	return m, nil
}

func (s *ProjectService) ListMembers(ctx context.Context, projectID uint, page, limit int) ([]project.Member, response.Pagination, error) {
	if err := validatePage(page, limit); err != nil {
		return nil, response.Pagination{}, err
	}
	members, total, err := s.Repos.Project.ListMembers(ctx, projectID, offset(page, limit), limit)
	if err != nil {
		return nil, response.Pagination{}, errs.Internal(err)
	}
	return members, response.NewPagination(page, limit, total), nil
}

// RemoveMember refuses to remove the project's last admin.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID uint) error {
	err := s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		m, err := tx.Project.GetMember(ctx, projectID, userID)
		if err != nil {
			return errs.FromStore(err, ErrMemberNotFound)
		}
		if m.Role == project.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, projectID); err != nil {
				return err
			}
		}
		return tx.Project.RemoveMember(ctx, projectID, userID)
	})
	return errs.FromStore(err, ErrMemberNotFound)
}

// ChangeMemberRole refuses to demote the project's last admin.
func (s *ProjectService) ChangeMemberRole(ctx context.Context, projectID, userID uint, role string) (*project.Member, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !project.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	var m project.Member
	err := s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		var err error
		m, err = tx.Project.GetMember(ctx, projectID, userID)
		if err != nil {
			return errs.FromStore(err, ErrMemberNotFound)
		}
		if m.Role == role {
			return nil
		}
		if m.Role == project.RoleAdmin {
			if err := ensureAnotherAdmin(ctx, tx, projectID); err != nil {
				return err
			}
		}
		if err := tx.Project.UpdateMemberRole(ctx, projectID, userID, role); err != nil {
			return err
		}
		m.Role = role
		return nil
	})
	if err != nil {
		return nil, errs.FromStore(err, ErrMemberNotFound)
	}
	return &m, nil
}

func ensureAnotherAdmin(ctx context.Context, tx *repository.Repos, projectID uint) error {
	admins, err := tx.Project.CountMembers(ctx, projectID, project.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastProjectAdmin
	}
	return nil
}
