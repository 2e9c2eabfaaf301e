package application

import (
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
)

type Services struct {
	User    *UserService
	Project *ProjectService
	Issue   *IssueService
	Comment *CommentService
}

func New(repos *repository.Repos, publisher events.Publisher, blobs storage.BlobStore) *Services {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Services{
		User:    NewUserService(repos),
		Project: NewProjectService(repos),
		Issue:   NewIssueService(repos, publisher, blobs),
		Comment: NewCommentService(repos, publisher),
	}
}
