package application

import "github.com/linskybing/zeera/internal/errs"

var (
	ErrUserNotFound       = errs.NotFound("user not found")
	ErrEmailTaken         = errs.Conflict("an account with this email already exists")
	ErrInvalidCredentials = errs.Unauthorized("invalid credentials")
	ErrAccountDisabled    = errs.Unauthorized("account is deactivated")
	ErrInvalidRefresh     = errs.Unauthorized("invalid refresh token")
	ErrIncorrectPassword  = errs.Validation("current password is incorrect")
	ErrSelfDeactivation   = errs.Validation("you cannot deactivate your own account")

	ErrProjectNotFound  = errs.NotFound("project not found")
	ErrMemberNotFound   = errs.NotFound("member not found")
	ErrAlreadyMember    = errs.Conflict("user is already a member of this project")
	ErrLastProjectAdmin = errs.Validation("a project must keep at least one admin")
	ErrInvalidRole      = errs.Validation("role must be admin or member")

	ErrIssueNotFound       = errs.NotFound("issue not found")
	ErrIssueAlreadyDeleted = errs.NotFound("issue not found or already deleted")
	ErrMissingTitleOrDesc  = errs.Validation("title and description are required")
	ErrNoValidChanges      = errs.Validation("no valid changes detected")
	ErrVersionConflict     = errs.Conflict("issue was modified concurrently, reload and retry")
	ErrKeyAllocation       = errs.Conflict("could not allocate an issue key, retry the request")
	ErrAssigneeNotMember   = errs.Validation("assignee must be a member of the project")
	ErrAlreadyAssigned     = errs.Validation("issue is already assigned, use reassign")
	ErrNotAssigned         = errs.Validation("issue is not assigned")
	ErrSameAssignee        = errs.Validation("issue is already assigned to this user")
	ErrInvalidParent       = errs.Validation("parent issue must belong to the same project")
	ErrCommentBodyRequired = errs.Validation("comment body is required")
	ErrCommentTooLong      = errs.Validation("comment body must be at most 5000 characters")
	ErrInvalidPagination   = errs.Validation("page must be >= 1 and limit between 1 and 100")
	ErrInvalidAttachment   = errs.Validation("attachment rejected")
)
