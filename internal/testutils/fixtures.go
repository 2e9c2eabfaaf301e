package testutils

import (
	"fmt"
	"testing"

	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DefaultPassword = "password123"

// CreateUser inserts an active member account with DefaultPassword.
func CreateUser(t testing.TB, gdb *gorm.DB, name string) user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	require.NoError(t, err)

	u := user.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: string(hash),
		Role:     user.RoleMember,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// CreateProject inserts a project owned by admin. key may be empty.
func CreateProject(t testing.TB, gdb *gorm.DB, name, key string, admin user.User, members ...user.User) project.Project {
	t.Helper()
	p := project.Project{Name: name, Key: key, CreatedBy: admin.UID}
	require.NoError(t, gdb.Create(&p).Error)

	require.NoError(t, gdb.Omit("User").Create(&project.Member{ProjectID: p.PID, UserID: admin.UID, Role: project.RoleAdmin}).Error)
	for _, m := range members {
		require.NoError(t, gdb.Omit("User").Create(&project.Member{ProjectID: p.PID, UserID: m.UID, Role: project.RoleMember}).Error)
	}
	return p
}
