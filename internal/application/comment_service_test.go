package application

import (
	"context"
	"strings"
	"testing"

	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	target := f.create(t, issue.CreateIssueInput{})
	svc := NewCommentService(repository.NewRepositories(f.gdb), f.events)
	ctx := context.Background()

	first, err := svc.AddComment(ctx, target.ID, f.member.UID, issue.CommentInput{Body: "  first  "})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Body)
	require.NotNil(t, first.Author)
	assert.Equal(t, "bob", first.Author.Name)

	_, err = svc.AddComment(ctx, target.ID, f.admin.UID, issue.CommentInput{Body: "second"})
	require.NoError(t, err)

	comments, err := svc.ListComments(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, "alice", comments[1].Author.Name)

	assert.Contains(t, f.events.types(), events.CommentAdded)
}

func TestAddComment_Rejections(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	target := f.create(t, issue.CreateIssueInput{})
	svc := NewCommentService(repository.NewRepositories(f.gdb), nil)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, target.ID, f.admin.UID, issue.CommentInput{Body: "   "})
	assert.ErrorIs(t, err, ErrCommentBodyRequired)

	_, err = svc.AddComment(ctx, target.ID, f.admin.UID, issue.CommentInput{Body: strings.Repeat("x", issue.MaxCommentLength+1)})
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = svc.AddComment(ctx, target.ID, f.admin.UID, issue.CommentInput{Body: strings.Repeat("x", issue.MaxCommentLength)})
	assert.NoError(t, err)

	require.NoError(t, f.svc.DeleteIssue(ctx, target.ID, f.admin.UID))
	_, err = svc.AddComment(ctx, target.ID, f.admin.UID, issue.CommentInput{Body: "late"})
	assert.ErrorIs(t, err, ErrIssueNotFound)
	_, err = svc.ListComments(ctx, target.ID)
	assert.ErrorIs(t, err, ErrIssueNotFound)

	var kept int64
	require.NoError(t, f.gdb.Model(&issue.Comment{}).Where("issue_id = ?", target.ID).Count(&kept).Error)
	assert.Equal(t, int64(1), kept)
}
