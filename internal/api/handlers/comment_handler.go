package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/domain/issue"
)

type CommentHandler struct {
	svc *application.CommentService
}

func NewCommentHandler(svc *application.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// AddComment godoc
// @Summary Comment on an issue
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Param input body issue.CommentInput true "Comment"
// @Success 201 {object} response.APIResponse{data=issue.Comment}
// @Failure 400 {object} response.ErrorResponse "Empty or too long"
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/comments [post]
func (h *CommentHandler) AddComment(c *gin.Context) {
	issueID, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	var input issue.CommentInput
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, "invalid comment payload")
		return
	}
	comment, err := h.svc.AddComment(c.Request.Context(), issueID, uid, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, comment, "Comment added")
}

// ListComments godoc
// @Summary List an issue's comments, oldest first
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param issueId path int true "Issue ID"
// @Success 200 {object} response.APIResponse{data=[]issue.Comment}
// @Failure 404 {object} response.ErrorResponse
// @Router /api/issues/{issueId}/comments [get]
func (h *CommentHandler) ListComments(c *gin.Context) {
	issueID, ok := idParam(c, "issueId")
	if !ok {
		return
	}
	comments, err := h.svc.ListComments(c.Request.Context(), issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, comments, "")
}
