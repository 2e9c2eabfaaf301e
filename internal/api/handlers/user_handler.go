package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/pkg/response"
)

type UserHandler struct {
	svc *application.UserService
}

func NewUserHandler(svc *application.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func setAuthCookies(c *gin.Context, tokens user.Tokens) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessCookie, tokens.AccessToken, int(config.AccessTokenTTL.Seconds()), "/", "", config.IsProduction, true)
	c.SetCookie(middleware.RefreshCookie, tokens.RefreshToken, int(config.RefreshTokenTTL.Seconds()), "/", "", config.IsProduction, true)
}

func clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", config.IsProduction, true)
	c.SetCookie(middleware.RefreshCookie, "", -1, "/", "", config.IsProduction, true)
}

// Register godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body user.RegisterInput true "Account details"
// @Success 201 {object} response.APIResponse{data=user.User}
// @Failure 400 {object} response.ErrorResponse "Invalid input"
// @Failure 409 {object} response.ErrorResponse "Email already registered"
// @Router /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var input user.RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "name, email and password are required")
		return
	}
	u, err := h.svc.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, u, "User registered successfully")
}

// Login godoc
// @Summary Log in with email and password
// @Description Returns the token pair and also sets both as httpOnly cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body user.LoginInput true "Credentials"
// @Success 200 {object} response.APIResponse{data=user.LoginResult}
// @Failure 400 {object} response.ErrorResponse "Invalid input"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input user.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	result, err := h.svc.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	setAuthCookies(c, result.Tokens)
	respondOK(c, http.StatusOK, result, "Login successful")
}

// Logout godoc
// @Summary Log out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	clearAuthCookies(c)
	respondOK(c, http.StatusOK, nil, "Logged out")
}

// Refresh godoc
// @Summary Exchange a refresh token for a new token pair
// @Description The refresh token is read from the cookie, falling back to the body.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body user.RefreshInput false "Refresh token when no cookie is sent"
// @Success 200 {object} response.APIResponse{data=user.Tokens}
// @Failure 401 {object} response.ErrorResponse "Invalid refresh token"
// @Router /api/auth/refresh [post]
func (h *UserHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshCookie)
	if token == "" {
		var input user.RefreshInput
		_ = c.ShouldBind(&input)
		token = input.RefreshToken
	}
	if token == "" {
		respondError(c, errs.Unauthorized("refresh token required"))
		return
	}
	tokens, err := h.svc.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	setAuthCookies(c, tokens)
	respondOK(c, http.StatusOK, tokens, "Token refreshed")
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=user.User}
// @Failure 401 {object} response.ErrorResponse
// @Router /api/auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	u, err := h.svc.CurrentUser(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, u, "")
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body user.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/auth/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var input user.ChangePasswordInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "oldPassword and newPassword are required")
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), uid, input); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Password changed")
}

// ListUsers godoc
// @Summary List active users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} response.APIResponse{data=response.PagedData}
// @Failure 400 {object} response.ErrorResponse
// @Router /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	users, pagination, err := h.svc.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, response.PagedData{Data: users, Pagination: pagination}, "")
}

// SetUserStatus godoc
// @Summary Activate or deactivate a user
// @Description System admins only. Deactivated users can no longer authenticate.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param input body user.SetStatusInput true "New status"
// @Success 200 {object} response.APIResponse{data=user.User}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/users/{id}/status [put]
func (h *UserHandler) SetUserStatus(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input user.SetStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "isActive is required")
		return
	}
	u, err := h.svc.SetActive(c.Request.Context(), actorID, id, *input.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, u, "User status updated")
}
