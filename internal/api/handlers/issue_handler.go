package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/pkg/response"
)

// maxAttachments caps the files accepted by a single create request.
const maxAttachments = 10

type IssueHandler struct {
	svc *application.IssueService
}

func NewIssueHandler(svc *application.IssueService) *IssueHandler {
	return &IssueHandler{svc: svc}
}

// CreateIssue godoc
// @Summary Create an issue
// @Description Accepts JSON, or multipart/form-data with files under "attachments".
// @Description The issue key is {projectKey}-{n}; the project key is derived on first use.
// @Tags issues
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param input body issue.CreateIssueInput true "Issue"
// @Param attachments formData file false "Attachment (repeatable)"
// @Success 201 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Project not found"
// @Failure 409 {object} response.ErrorResponse "Key allocation failed"
// @Router /api/projects/{id}/issues [post]
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var (
		input issue.CreateIssueInput
		files []issue.NewAttachment
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAttachments*storage.MaxUploadSize+(1<<20))
		form, err := c.MultipartForm()
		if err != nil {
			badRequest(c, "invalid multipart body")
			return
		}
		if err := c.ShouldBind(&input); err != nil {
			badRequest(c, "invalid issue payload")
			return
		}
		headers := form.File["attachments"]
		if len(headers) > maxAttachments {
			badRequest(c, "at most "+strconv.Itoa(maxAttachments)+" attachments are allowed")
			return
		}
		files = make([]issue.NewAttachment, 0, len(headers))
		for _, fh := range headers {
			files = append(files, newAttachment(fh))
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid issue payload")
		return
	}

	created, err := h.svc.CreateIssue(c.Request.Context(), projectID, uid, input, files)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, created, "Issue created successfully")
}

func newAttachment(fh *multipart.FileHeader) issue.NewAttachment {
	return issue.NewAttachment{
		OriginalName: fh.Filename,
		Size:         fh.Size,
		MimeType:     fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// ListIssues godoc
// @Summary List a project's issues
// @Description Filters combine with AND. search matches title, description and key.
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param sortBy query string false "createdAt, updatedAt, priorityOrder or dueDate" default(createdAt)
// @Param sortOrder query string false "asc or desc" default(desc)
// @Param search query string false "Free text"
// @Param status query string false "Status"
// @Param priority query string false "high, medium or low"
// @Param assignee query int false "Assignee user ID"
// @Param type query string false "task, bug, story or subtask"
// @Param labels query string false "Comma separated labels, matches any"
// @Param populate query string false "e.g. assignee:name|email,reporter"
// @Success 200 {object} response.APIResponse{data=response.PagedData}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/projects/{id}/issues [get]
func (h *IssueHandler) ListIssues(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	q, err := listQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	items, pagination, err := h.svc.ListIssues(c.Request.Context(), projectID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, response.PagedData{Data: items, Pagination: pagination}, "")
}

func listQuery(c *gin.Context) (issue.ListQuery, error) {
	page, limit, err := pageParams(c)
	if err != nil {
		return issue.ListQuery{}, err
	}
	q := issue.ListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Type:      c.Query("type"),
		Labels:    c.QueryArray("labels"),
	}
	if raw := c.Query("assignee"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return issue.ListQuery{}, errs.Validation("assignee must be a user id")
		}
		assignee := uint(id)
		q.Assignee = &assignee
	}
	if raw := c.Query("populate"); raw != "" {
		populate, err := issue.ParsePopulate(raw)
		if err != nil {
			return issue.ListQuery{}, errs.Validation("invalid populate: " + err.Error())
		}
		q.Populate = populate
	}
	return q, nil
}

// GetIssue godoc
// @Summary Get an issue
// @Description Assignee, reporter and parent are populated unless populate says otherwise.
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param populate query string false "e.g. assignee:name|email,project"
// @Success 200 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId} [get]
func (h *IssueHandler) GetIssue(c *gin.Context) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	it, err := h.svc.GetIssue(c.Request.Context(), id, c.Query("populate"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, it, "")
}

// UpdateIssue godoc
// @Summary Update an issue
// @Description Only title, description, status, priority and dueDate are applied.
// @Description Every changed field gets one history entry.
// @Tags issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param input body issue.UpdateIssueInput true "Changed fields"
// @Success 200 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse "No valid changes"
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Concurrent modification"
// @Router /api/issues/{issueId} [put]
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var input issue.UpdateIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid update payload: "+err.Error())
		return
	}
	updated, err := h.svc.UpdateIssue(c.Request.Context(), id, uid, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, updated, "Issue updated successfully")
}

// DeleteIssue godoc
// @Summary Soft delete an issue
// @Description Deleting a non-subtask also deletes its live subtasks.
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Not found or already deleted"
// @Router /api/issues/{issueId} [delete]
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteIssue(c.Request.Context(), id, uid); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "Issue deleted successfully")
}

// AssignIssue godoc
// @Summary Assign an unassigned issue
// @Tags issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param input body issue.AssignInput true "Assignee"
// @Success 200 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/assign [put]
func (h *IssueHandler) AssignIssue(c *gin.Context) {
	h.assign(c, h.svc.Assign, "Issue assigned")
}

// ReassignIssue godoc
// @Summary Move an assigned issue to another member
// @Tags issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param input body issue.AssignInput true "New assignee"
// @Success 200 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/reassign [put]
func (h *IssueHandler) ReassignIssue(c *gin.Context) {
	h.assign(c, h.svc.Reassign, "Issue reassigned")
}

func (h *IssueHandler) assign(c *gin.Context, fn func(ctx context.Context, id, actorID, assigneeID uint) (*issue.Issue, error), msg string) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var input issue.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "assigneeId is required")
		return
	}
	updated, err := fn(c.Request.Context(), id, uid, input.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, updated, msg)
}

// UnassignIssue godoc
// @Summary Remove the assignee
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Success 200 {object} response.APIResponse{data=issue.Issue}
// @Failure 400 {object} response.ErrorResponse "Not assigned"
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/unassign [put]
func (h *IssueHandler) UnassignIssue(c *gin.Context) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	updated, err := h.svc.Unassign(c.Request.Context(), id, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, updated, "Issue unassigned")
}

// ListHistory godoc
// @Summary Issue history, newest first
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Success 200 {object} response.APIResponse{data=[]issue.History}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/history [get]
func (h *IssueHandler) ListHistory(c *gin.Context) {
	id, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	entries, err := h.svc.ListHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, entries, "")
}
