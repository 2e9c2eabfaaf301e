package application

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UserService struct {
	Repos *repository.Repos
}

func NewUserService(repos *repository.Repos) *UserService {
	return &UserService{
		Repos: repos,
	}
}

func (s *UserService) Register(ctx context.Context, input user.RegisterInput) (*user.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" || input.Password == "" {
		return nil, errs.Validation("name, email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, errs.Validation("invalid email format")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, errs.Validation("password must be at least 8 characters")
	}

	_, err := s.Repos.User.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Internal(err)
	}
	u := &user.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     user.RoleMember,
		IsActive: true,
	}
	if err := s.Repos.User.CreateUser(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, errs.Internal(err)
	}
	return u, nil
}

func (s *UserService) Login(ctx context.Context, input user.LoginInput) (*user.LoginResult, error) {
	u, err := s.Repos.User.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errs.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	tokens, err := s.issueTokens(u)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.Repos.User.SetRefreshToken(ctx, u.UID, tokens.RefreshToken, &now); err != nil {
		return nil, errs.Internal(err)
	}
	u.LastLogin = &now
	return &user.LoginResult{User: u, Tokens: tokens}, nil
}

func (s *UserService) issueTokens(u user.User) (user.Tokens, error) {
	access, err := middleware.GenerateToken(u, config.AccessTokenTTL)
	if err != nil {
		return user.Tokens{}, errs.Internal(err)
	}
	refresh, err := middleware.GenerateRefreshToken(u.UID, config.RefreshTokenTTL)
	if err != nil {
		return user.Tokens{}, errs.Internal(err)
	}
	return user.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout forgets the stored refresh token so it can no longer be exchanged.
func (s *UserService) Logout(ctx context.Context, userID uint) error {
	if err := s.Repos.User.SetRefreshToken(ctx, userID, "", nil); err != nil {
		return errs.Internal(err)
	}
	return nil
}

// PurgeExpiredSessions clears refresh tokens that can no longer be valid
// because they were issued longer than the refresh TTL ago.
func (s *UserService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.Repos.User.ClearStaleRefreshTokens(ctx, time.Now().Add(-config.RefreshTokenTTL))
	if err != nil {
		return 0, errs.Internal(err)
	}
	return n, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented token
// must be the one last issued to the user; it is rotated on success.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (user.Tokens, error) {
	if refreshToken == "" {
		return user.Tokens{}, errs.Unauthorized("refresh token required")
	}
	claims, err := middleware.ParseRefreshToken(refreshToken)
	if err != nil {
		return user.Tokens{}, ErrInvalidRefresh
	}
	u, err := s.Repos.User.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return user.Tokens{}, ErrInvalidRefresh
	}
	if !u.IsActive || u.RefreshToken == "" || u.RefreshToken != refreshToken {
		return user.Tokens{}, ErrInvalidRefresh
	}

	tokens, err := s.issueTokens(u)
	if err != nil {
		return user.Tokens{}, err
	}
	if err := s.Repos.User.SetRefreshToken(ctx, u.UID, tokens.RefreshToken, nil); err != nil {
		return user.Tokens{}, errs.Internal(err)
	}
	return tokens, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint, input user.ChangePasswordInput) error {
	if input.OldPassword == "" || input.NewPassword == "" {
		return errs.Validation("current and new password are required")
	}
	if len(input.NewPassword) < MinPasswordLength {
		return errs.Validation("new password must be at least 8 characters")
	}
	if input.OldPassword == input.NewPassword {
		return errs.Validation("new password must be different from the current password")
	}

	u, err := s.Repos.User.GetUserByID(ctx, userID)
	if err != nil {
		return errs.FromStore(err, ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(input.OldPassword)); err != nil {
		return ErrIncorrectPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errs.Internal(err)
	}
	u.Password = string(hashed)
	if err := s.Repos.User.SaveUser(ctx, &u); err != nil {
		return errs.Internal(err)
	}
	return nil
}

func (s *UserService) CurrentUser(ctx context.Context, userID uint) (*user.User, error) {
	u, err := s.Repos.User.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errs.FromStore(err, ErrUserNotFound)
	}
	return &u, nil
}

// SetActive enables or disables an account. Disabling also drops the stored
// refresh token so the user cannot mint new access tokens.
func (s *UserService) SetActive(ctx context.Context, actorID, userID uint, active bool) (*user.User, error) {
	if !active && actorID == userID {
		return nil, ErrSelfDeactivation
	}
	u, err := s.Repos.User.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errs.FromStore(err, ErrUserNotFound)
	}
	if u.IsActive == active {
		return &u, nil
	}
	u.IsActive = active
	if !active {
		u.RefreshToken = ""
	}
	if err := s.Repos.User.SaveUser(ctx, &u); err != nil {
		return nil, errs.Internal(err)
	}
	slog.Info("user status changed", "user_id", userID, "active", active, "actor_id", actorID)
	return &u, nil
}

// ListUsers returns active users sorted by name.
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]user.User, response.Pagination, error) {
	if err := validatePage(page, limit); err != nil {
		return nil, response.Pagination{}, err
	}
	users, total, err := s.Repos.User.ListActiveUsers(ctx, offset(page, limit), limit)
	if err != nil {
		return nil, response.Pagination{}, errs.Internal(err)
	}
	return users, response.NewPagination(page, limit, total), nil
}

// EnsureDefaultAdmin creates the configured admin account if it does not exist yet.
// It reports whether an account was created. Missing credentials skip seeding.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		slog.Warn("default admin credentials not configured, skipping seed")
		return false, nil
	}
	if len(password) < MinPasswordLength {
		return false, errs.Validation("default admin password must be at least 8 characters")
	}

	_, err := s.Repos.User.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, errs.Internal(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, errs.Internal(err)
	}
	if name == "" {
		name = "Administrator"
	}
	admin := &user.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     user.RoleAdmin,
		IsActive: true,
	}
	if err := s.Repos.User.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, errs.Internal(err)
	}
	slog.Info("default admin created", "email", email)
	return true, nil
}
