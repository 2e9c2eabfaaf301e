package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/pkg/response"
)

type ProjectHandler struct {
	svc *application.ProjectService
}

func NewProjectHandler(svc *application.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// CreateProject godoc
// @Summary Create a project
// @Description The caller becomes the project's first admin. The key is derived from the name when omitted.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body project.CreateProjectInput true "Project"
// @Success 201 {object} response.APIResponse{data=project.Project}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Key already used"
// @Router /api/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var input project.CreateProjectInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "project name is required")
		return
	}
	p, err := h.svc.CreateProject(c.Request.Context(), uid, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p, "Project created successfully")
}

// ListProjects godoc
// @Summary List the caller's projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} response.APIResponse{data=response.PagedData}
// @Router /api/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	page, limit, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	projects, pagination, err := h.svc.ListUserProjects(c.Request.Context(), uid, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, response.PagedData{Data: projects, Pagination: pagination}, "")
}

// GetProject godoc
// @Summary Get a project
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} response.APIResponse{data=project.Project}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p, "")
}

// AddMember godoc
// @Summary Add a member to a project
// @Description The user is identified by userId or email. Role defaults to member.
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param input body project.AddMemberInput true "Member"
// @Success 201 {object} response.APIResponse{data=project.Member}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "User not found"
// @Failure 409 {object} response.ErrorResponse "Already a member"
// @Router /api/projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input project.AddMemberInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "invalid member payload")
		return
	}
	m, err := h.svc.AddMember(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, m, "Member added")
}

// ListMembers godoc
// @Summary List project members
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} response.APIResponse{data=response.PagedData}
// @Router /api/projects/{id}/members [get]
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	page, limit, err := pageParams(c)
	if err != nil {
		respondError(c, err)
		return
	}
	members, pagination, err := h.svc.ListMembers(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, response.PagedData{Data: members, Pagination: pagination}, "")
}

// RemoveMember godoc
// @Summary Remove a member
// @Description The last admin of a project cannot be removed.
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userId path int true "User ID"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.ErrorResponse "Last admin"
// @Failure 404 {object} response.ErrorResponse
// @Router /api/projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Member removed")
}

// ChangeMemberRole godoc
// @Summary Change a member's role
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userId path int true "User ID"
// @Param input body project.ChangeRoleInput true "New role"
// @Success 200 {object} response.APIResponse{data=project.Member}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/projects/{id}/members/{userId} [put]
func (h *ProjectHandler) ChangeMemberRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var input project.ChangeRoleInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "role is required")
		return
	}
	m, err := h.svc.ChangeMemberRole(c.Request.Context(), id, userID, input.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, m, "Role updated")
}
