package application

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/repository"
)

type CommentService struct {
	Repos  *repository.Repos
	events events.Publisher
}

func NewCommentService(repos *repository.Repos, publisher events.Publisher) *CommentService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &CommentService{Repos: repos, events: publisher}
}

// AddComment attaches a comment to a live issue and returns it with its author.
func (s *CommentService) AddComment(ctx context.Context, issueID, authorID uint, input issue.CommentInput) (*issue.Comment, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrCommentBodyRequired
	}
	if utf8.RuneCountInString(body) > issue.MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	target, err := s.Repos.Issue.GetIssueByID(ctx, issueID, nil)
	if err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}

	c := &issue.Comment{IssueID: issueID, AuthorID: authorID, Body: body}
	if err := s.Repos.Comment.CreateComment(ctx, c); err != nil {
		return nil, errs.Internal(err)
	}
	created, err := s.Repos.Comment.GetCommentByID(ctx, c.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}

	ev := events.Event{
		Type:      events.CommentAdded,
		ProjectID: target.ProjectID,
		IssueID:   issueID,
		IssueKey:  target.Key,
		ActorID:   authorID,
		At:        created.CreatedAt,
		Changes:   map[string]any{"commentId": created.ID},
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.Warn("publish comment event", "issue_id", issueID, "error", err)
	}
	return &created, nil
}

// ListComments returns the comments of a live issue, oldest first.
func (s *CommentService) ListComments(ctx context.Context, issueID uint) ([]issue.Comment, error) {
	if _, err := s.Repos.Issue.GetIssueByID(ctx, issueID, nil); err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	comments, err := s.Repos.Comment.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if comments == nil {
		comments = []issue.Comment{}
	}
	return comments, nil
}
