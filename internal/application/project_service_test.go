package application

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/repository/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProjectServiceMocks(t *testing.T) (*ProjectService, *mock.MockProjectRepo, *mock.MockUserRepo) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockProject := mock.NewMockProjectRepo(ctrl)
	mockUser := mock.NewMockUserRepo(ctrl)
	repos := &repository.Repos{
		Project: mockProject,
		User:    mockUser,
	}
	return NewProjectService(repos), mockProject, mockUser
}

func TestCreateProject_CreatorBecomesAdmin(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().CreateProject(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, p *project.Project) error {
		assert.Equal(t, "CUPO", p.Key)
		p.PID = 7
		return nil
	})
	mockProject.EXPECT().AddMember(ctx, &project.Member{ProjectID: 7, UserID: 3, Role: project.RoleAdmin}).Return(nil)

	p, err := svc.CreateProject(ctx, 3, project.CreateProjectInput{Name: "Customer Portal Revamp"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), p.PID)
	assert.Equal(t, int64(1), p.MemberCount)
}

func TestCreateProject_Validation(t *testing.T) {
	svc, _, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, 3, project.CreateProjectInput{Name: "  "})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.CreateProject(ctx, 3, project.CreateProjectInput{Name: "Alpha", Key: "a-b"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestCreateProject_DuplicateKeyIsConflict(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().CreateProject(ctx, gomock.Any()).Return(gorm.ErrDuplicatedKey)
	_, err := svc.CreateProject(ctx, 3, project.CreateProjectInput{Name: "Alpha", Key: "alpha"})
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestAddMember(t *testing.T) {
	svc, mockProject, mockUser := setupProjectServiceMocks(t)
	ctx := context.Background()
	bob := user.User{UID: 2, Name: "bob", Email: "bob@example.com", IsActive: true}

	mockProject.EXPECT().GetProjectByID(ctx, uint(1)).Return(project.Project{PID: 1}, nil).Times(2)
	mockUser.EXPECT().GetUserByEmail(ctx, "bob@example.com").Return(bob, nil)
	mockProject.EXPECT().GetMember(ctx, uint(1), uint(2)).Return(project.Member{}, gorm.ErrRecordNotFound)
	mockProject.EXPECT().AddMember(ctx, gomock.Any()).Return(nil)

	m, err := svc.AddMember(ctx, 1, project.AddMemberInput{Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, project.RoleMember, m.Role)
	assert.Equal(t, "bob", m.User.Name)

	mockUser.EXPECT().GetUserByID(ctx, uint(2)).Return(bob, nil)
	mockProject.EXPECT().GetMember(ctx, uint(1), uint(2)).Return(project.Member{ProjectID: 1, UserID: 2}, nil)
	_, err = svc.AddMember(ctx, 1, project.AddMemberInput{UserID: 2, Role: "admin"})
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = svc.AddMember(ctx, 1, project.AddMemberInput{UserID: 2, Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRemoveMember_KeepsLastAdmin(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(3)).Return(project.Member{Role: project.RoleAdmin}, nil)
	mockProject.EXPECT().CountMembers(ctx, uint(1), project.RoleAdmin).Return(int64(1), nil)
	assert.ErrorIs(t, svc.RemoveMember(ctx, 1, 3), ErrLastProjectAdmin)

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(2)).Return(project.Member{Role: project.RoleMember}, nil)
	mockProject.EXPECT().RemoveMember(ctx, uint(1), uint(2)).Return(nil)
	assert.NoError(t, svc.RemoveMember(ctx, 1, 2))

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(9)).Return(project.Member{}, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, svc.RemoveMember(ctx, 1, 9), ErrMemberNotFound)
}

func TestChangeMemberRole(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(3)).Return(project.Member{UserID: 3, Role: project.RoleAdmin}, nil)
	mockProject.EXPECT().CountMembers(ctx, uint(1), project.RoleAdmin).Return(int64(1), nil)
	_, err := svc.ChangeMemberRole(ctx, 1, 3, "member")
	assert.ErrorIs(t, err, ErrLastProjectAdmin)

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(2)).Return(project.Member{UserID: 2, Role: project.RoleMember}, nil)
	mockProject.EXPECT().UpdateMemberRole(ctx, uint(1), uint(2), project.RoleAdmin).Return(nil)
	m, err := svc.ChangeMemberRole(ctx, 1, 2, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, project.RoleAdmin, m.Role)
}

func TestMemberRole(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(5)).Return(project.Member{}, gorm.ErrRecordNotFound)
	role, err := svc.MemberRole(ctx, 1, 5)
	require.NoError(t, err)
	assert.Empty(t, role)

	mockProject.EXPECT().GetMember(ctx, uint(1), uint(2)).Return(project.Member{Role: project.RoleMember}, nil)
	role, err = svc.MemberRole(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, project.RoleMember, role)
}

func TestGetProject_NotFound(t *testing.T) {
	svc, mockProject, _ := setupProjectServiceMocks(t)
	ctx := context.Background()

	mockProject.EXPECT().GetProjectByID(ctx, uint(4)).Return(project.Project{}, gorm.ErrRecordNotFound)
	_, err := svc.GetProject(ctx, 4)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
