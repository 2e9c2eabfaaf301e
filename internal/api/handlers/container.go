package handlers

import (
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/events"
)

type Handlers struct {
	User     *UserHandler
	Project  *ProjectHandler
	Issue    *IssueHandler
	Comment  *CommentHandler
	Activity *ActivityHandler
}

func New(svc *application.Services, hub *events.Hub) *Handlers {
	return &Handlers{
		User:     NewUserHandler(svc.User),
		Project:  NewProjectHandler(svc.Project),
		Issue:    NewIssueHandler(svc.Issue),
		Comment:  NewCommentHandler(svc.Comment),
		Activity: NewActivityHandler(hub),
	}
}
