package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type issueFixture struct {
	gdb      *gorm.DB
	svc      *IssueService
	events   *recordingPublisher
	admin    user.User
	member   user.User
	outsider user.User
	project  project.Project
}

func newIssueFixture(t *testing.T, projectName, projectKey string) *issueFixture {
	t.Helper()
	gdb := testutils.NewSQLiteDB(t)
	admin := testutils.CreateUser(t, gdb, "alice")
	member := testutils.CreateUser(t, gdb, "bob")
	outsider := testutils.CreateUser(t, gdb, "mallory")
	p := testutils.CreateProject(t, gdb, projectName, projectKey, admin, member)

	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	rec := &recordingPublisher{}
	svc := NewIssueService(repository.NewRepositories(gdb), rec, blobs)
	svc.keyBackoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return &issueFixture{gdb: gdb, svc: svc, events: rec, admin: admin, member: member, outsider: outsider, project: p}
}

func (f *issueFixture) create(t *testing.T, input issue.CreateIssueInput) *issue.Issue {
	t.Helper()
	if input.Title == "" {
		input.Title = "Issue"
	}
	if input.Description == "" {
		input.Description = "Something to do"
	}
	created, err := f.svc.CreateIssue(context.Background(), f.project.PID, f.admin.UID, input, nil)
	require.NoError(t, err)
	return created
}

func (f *issueFixture) history(t *testing.T, issueID uint) []issue.History {
	t.Helper()
	var entries []issue.History
	require.NoError(t, f.gdb.Where("issue_id = ?", issueID).Order("id").Find(&entries).Error)
	return entries
}

func (f *issueFixture) raw(t *testing.T, issueID uint) issue.Issue {
	t.Helper()
	var i issue.Issue
	require.NoError(t, f.gdb.First(&i, "i_id = ?", issueID).Error)
	return i
}

func strPtr(s string) *string { return &s }

func TestCreateIssue_DerivesProjectKey(t *testing.T) {
	f := newIssueFixture(t, "Customer Portal Revamp", "")

	created := f.create(t, issue.CreateIssueInput{Title: "  Login fails  ", Description: "On Safari", Assignee: &f.member.UID})

	assert.Equal(t, "CUPO-1", created.Key)
	assert.Equal(t, "Login fails", created.Title)

	var stored project.Project
	require.NoError(t, f.gdb.First(&stored, "p_id = ?", f.project.PID).Error)
	assert.Equal(t, "CUPO", stored.Key)

	require.NotNil(t, created.Reporter)
	assert.Equal(t, "alice", created.Reporter.Name)
	assert.Equal(t, "alice@example.com", created.Reporter.Email)
	require.NotNil(t, created.Assignee)
	assert.Equal(t, "bob", created.Assignee.Name)
	require.NotNil(t, created.Project)
	assert.Equal(t, "CUPO", created.Project.Key)
	assert.Equal(t, "Customer Portal Revamp", created.Project.Name)

	entries := f.history(t, created.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, issue.ActionCreate, entries[0].Action)
	assert.Equal(t, f.admin.UID, entries[0].ActorID)

	assert.Equal(t, []string{events.IssueCreated}, f.events.types())
}

func TestCreateIssue_SequentialKeysCountDeletedIssues(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")

	var keys []string
	for i := 0; i < 3; i++ {
		keys = append(keys, f.create(t, issue.CreateIssueInput{}).Key)
	}
	assert.Equal(t, []string{"ABCD-1", "ABCD-2", "ABCD-3"}, keys)

	second := f.create(t, issue.CreateIssueInput{})
	require.NoError(t, f.svc.DeleteIssue(context.Background(), second.ID, f.admin.UID))

	next := f.create(t, issue.CreateIssueInput{})
	assert.Equal(t, "ABCD-5", next.Key)
}

func TestCreateIssue_Defaults(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")

	created := f.create(t, issue.CreateIssueInput{Priority: "urgent", Labels: []string{"ui, backend", "ui"}, DueDate: "2026-12-31"})

	assert.Equal(t, issue.TypeTask, created.Type)
	assert.Equal(t, issue.StatusOpen, created.Status)
	assert.Equal(t, "medium", created.Priority)
	assert.Equal(t, 2, created.PriorityOrder)
	assert.Equal(t, 0, created.Version)
	assert.False(t, created.IsDeleted)
	assert.ElementsMatch(t, []string{"ui", "backend"}, created.Labels)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2026-12-31", created.DueDate.Format(time.DateOnly))
	assert.Empty(t, created.Attachments)
}

func TestCreateIssue_Rejections(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	ctx := context.Background()
	other := testutils.CreateProject(t, f.gdb, "Other", "OTHR", f.admin)
	foreign, err := f.svc.CreateIssue(ctx, other.PID, f.admin.UID, issue.CreateIssueInput{Title: "x", Description: "y"}, nil)
	require.NoError(t, err)

	cases := []struct {
		name      string
		projectID uint
		input     issue.CreateIssueInput
		want      error
	}{
		{"blank title", f.project.PID, issue.CreateIssueInput{Title: "   ", Description: "d"}, ErrMissingTitleOrDesc},
		{"missing description", f.project.PID, issue.CreateIssueInput{Title: "t"}, ErrMissingTitleOrDesc},
		{"unknown project", 9999, issue.CreateIssueInput{Title: "t", Description: "d"}, ErrProjectNotFound},
		{"assignee outside project", f.project.PID, issue.CreateIssueInput{Title: "t", Description: "d", AssignedTo: &f.outsider.UID}, ErrAssigneeNotMember},
		{"parent in other project", f.project.PID, issue.CreateIssueInput{Title: "t", Description: "d", Parent: &foreign.ID}, ErrInvalidParent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateIssue(ctx, tc.projectID, f.admin.UID, tc.input, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = f.svc.CreateIssue(ctx, f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: "t", Description: "d", Type: "epic"}, nil)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	_, err = f.svc.CreateIssue(ctx, f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: "t", Description: "d", DueDate: "tomorrow"}, nil)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestCreateIssue_KeyCollisionExhaustsRetries(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	// A stray row holding the next key makes every attempt collide.
	stray := issue.Issue{ProjectID: f.project.PID, Key: "ABCD-2", Title: "t", Description: "d", Type: issue.TypeTask,
		Priority: "medium", PriorityOrder: 2, Status: issue.StatusOpen, ReporterID: f.admin.UID}
	require.NoError(t, f.gdb.Omit("Reporter", "Assignee", "Parent", "Project").Create(&stray).Error)

	_, err := f.svc.CreateIssue(context.Background(), f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: "t", Description: "d"}, nil)
	assert.ErrorIs(t, err, ErrKeyAllocation)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	var histories int64
	require.NoError(t, f.gdb.Model(&issue.History{}).Count(&histories).Error)
	assert.Zero(t, histories)
}

func TestCreateIssue_StoresAttachments(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	files := []issue.NewAttachment{{
		OriginalName: "notes.txt",
		Size:         5,
		MimeType:     "text/plain",
		Open:         func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("hello")), nil },
	}}

	created, err := f.svc.CreateIssue(context.Background(), f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: "t", Description: "d"}, files)
	require.NoError(t, err)
	require.Len(t, created.Attachments, 1)
	a := created.Attachments[0]
	assert.Equal(t, "notes.txt", a.OriginalName)
	assert.Equal(t, int64(5), a.Size)
	assert.True(t, strings.HasPrefix(a.Filename, fmt.Sprintf("projects/%d/", f.project.PID)))

	rc, err := f.svc.blobs.Get(context.Background(), a.Filename)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(body))

	files[0].MimeType = "application/x-msdownload"
	_, err = f.svc.CreateIssue(context.Background(), f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: "t", Description: "d"}, files)
	assert.ErrorIs(t, err, ErrInvalidAttachment)
}

func TestGetIssue_Population(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	parent := f.create(t, issue.CreateIssueInput{Title: "Parent", Type: issue.TypeStory})
	child := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &parent.ID, Assignee: &f.member.UID})
	ctx := context.Background()

	got, err := f.svc.GetIssue(ctx, child.ID, "")
	require.NoError(t, err)
	require.NotNil(t, got.Parent)
	assert.Equal(t, "ABCD-1", got.Parent.Key)
	assert.Equal(t, "Parent", got.Parent.Title)
	require.NotNil(t, got.Assignee)
	assert.Equal(t, "bob@example.com", got.Assignee.Email)
	assert.Nil(t, got.Project)

	got, err = f.svc.GetIssue(ctx, child.ID, "reporter:name")
	require.NoError(t, err)
	require.NotNil(t, got.Reporter)
	assert.Equal(t, "alice", got.Reporter.Name)
	assert.Empty(t, got.Reporter.Email)
	assert.Nil(t, got.Assignee)
	assert.Nil(t, got.Parent)

	_, err = f.svc.GetIssue(ctx, child.ID, "reporter:name,watchers")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.GetIssue(ctx, 9999, "")
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestUpdateIssue_RollsBackWhenHistoryWriteFails(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{Title: "Before"})

	require.NoError(t, f.gdb.Callback().Create().Before("gorm:create").Register("test:fail_history", func(db *gorm.DB) {
		if db.Statement.Table == "issue_histories" {
			_ = db.AddError(errors.New("history write failed"))
		}
	}))

	_, err := f.svc.UpdateIssue(context.Background(), created.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr("After"), Status: strPtr("in-progress")})
	require.Error(t, err)
	assert.Equal(t, errs.KindInternal, errs.KindOf(err))

	stored := f.raw(t, created.ID)
	assert.Equal(t, "Before", stored.Title)
	assert.Equal(t, issue.StatusOpen, stored.Status)
	assert.Equal(t, 0, stored.Version)
	assert.Len(t, f.history(t, created.ID), 1)
	assert.Equal(t, []string{events.IssueCreated}, f.events.types())
}

func TestUpdateIssue_RecordsOnlyChangedFields(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{Title: "Same", Priority: "low"})

	updated, err := f.svc.UpdateIssue(context.Background(), created.ID, f.member.UID, issue.UpdateIssueInput{
		Title:    strPtr("Same"),
		Status:   strPtr("in-progress"),
		Priority: strPtr("HIGH"),
	})
	require.NoError(t, err)
	assert.Equal(t, "in-progress", updated.Status)
	assert.Equal(t, "high", updated.Priority)
	assert.Equal(t, 1, updated.PriorityOrder)
	assert.Equal(t, 1, updated.Version)

	entries := f.history(t, created.ID)
	require.Len(t, entries, 3)
	status, priority := entries[1], entries[2]

	assert.Equal(t, issue.ActionStatusChange, status.Action)
	require.NotNil(t, status.Field)
	assert.Equal(t, "status", *status.Field)
	assert.JSONEq(t, `"open"`, string(status.From))
	assert.JSONEq(t, `"in-progress"`, string(status.To))
	assert.Equal(t, f.member.UID, status.ActorID)

	assert.Equal(t, issue.ActionPriorityChange, priority.Action)
	assert.JSONEq(t, `"low"`, string(priority.From))
	assert.JSONEq(t, `"high"`, string(priority.To))
}

func TestUpdateIssue_DueDateAndDescription(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{DueDate: "2026-01-01"})

	updated, err := f.svc.UpdateIssue(context.Background(), created.ID, f.admin.UID, issue.UpdateIssueInput{
		Description: strPtr("Rewritten"),
		DueDate:     issue.OptionalTime{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "Rewritten", updated.Description)

	entries := f.history(t, created.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, issue.ActionUpdate, entries[2].Action)
	assert.Equal(t, "dueDate", *entries[2].Field)
	assert.JSONEq(t, "null", string(entries[2].To))
}

func TestUpdateIssue_NoChangesRejected(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{Title: "Same", Priority: "high"})
	ctx := context.Background()

	_, err := f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr(" Same "), Priority: strPtr("high")})
	assert.ErrorIs(t, err, ErrNoValidChanges)

	_, err = f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{})
	assert.ErrorIs(t, err, ErrNoValidChanges)

	assert.Equal(t, 0, f.raw(t, created.ID).Version)
	assert.Len(t, f.history(t, created.ID), 1)
}

func TestUpdateIssue_InvalidInput(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{})
	ctx := context.Background()

	_, err := f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Priority: strPtr("urgent")})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr("  ")})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.UpdateIssue(ctx, 9999, f.admin.UID, issue.UpdateIssueInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestUpdateIssue_ExpectedVersion(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{})
	ctx := context.Background()

	stale := 3
	_, err := f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Status: strPtr("closed"), ExpectedVersion: &stale})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	current := 0
	updated, err := f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Status: strPtr("closed"), ExpectedVersion: &current})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
}

func TestDeleteIssue_CascadesToSubtasks(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	earlier := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return earlier }

	parent := f.create(t, issue.CreateIssueInput{Type: issue.TypeStory})
	sub1 := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &parent.ID})
	sub2 := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &parent.ID})
	removed := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &parent.ID})
	linkedTask := f.create(t, issue.CreateIssueInput{Type: issue.TypeTask, Parent: &parent.ID})
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteIssue(ctx, removed.ID, f.admin.UID))

	f.svc.now = func() time.Time { return frozen }
	require.NoError(t, f.svc.DeleteIssue(ctx, parent.ID, f.member.UID))

	for _, id := range []uint{parent.ID, sub1.ID, sub2.ID} {
		stored := f.raw(t, id)
		assert.True(t, stored.IsDeleted)
		require.NotNil(t, stored.DeletedBy)
		assert.Equal(t, f.member.UID, *stored.DeletedBy)
		require.NotNil(t, stored.DeletedAt)
		assert.True(t, frozen.Equal(*stored.DeletedAt))
	}
	assert.False(t, f.raw(t, linkedTask.ID).IsDeleted)

	// A subtask deleted before the parent keeps its own deletion record.
	prior := f.raw(t, removed.ID)
	assert.True(t, prior.IsDeleted)
	require.NotNil(t, prior.DeletedBy)
	assert.Equal(t, f.admin.UID, *prior.DeletedBy)
	require.NotNil(t, prior.DeletedAt)
	assert.True(t, earlier.Equal(*prior.DeletedAt), "deletedAt = %v", *prior.DeletedAt)
	assert.Len(t, f.history(t, removed.ID), 2)

	parentHistory := f.history(t, parent.ID)
	require.Len(t, parentHistory, 2)
	del := parentHistory[1]
	assert.Equal(t, issue.ActionDelete, del.Action)
	assert.JSONEq(t, "false", string(del.From))
	assert.JSONEq(t, `{"isDeleted":true,"cascadedSubtasks":2}`, string(del.To))

	// Subtasks carry only their CREATE entry.
	assert.Len(t, f.history(t, sub1.ID), 1)
	assert.Len(t, f.history(t, sub2.ID), 1)

	err := f.svc.DeleteIssue(ctx, parent.ID, f.member.UID)
	assert.ErrorIs(t, err, ErrIssueAlreadyDeleted)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestIssueTextLengthLimits(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	ctx := context.Background()

	// Limits count characters, not bytes.
	wide := strings.Repeat("測", issue.MaxTitleLength)
	created := f.create(t, issue.CreateIssueInput{Title: wide, Status: strings.Repeat("é", issue.MaxStatusLength)})
	assert.Equal(t, wide, created.Title)

	tooLong := strings.Repeat("a", issue.MaxTitleLength+1)
	_, err := f.svc.CreateIssue(ctx, f.project.PID, f.admin.UID, issue.CreateIssueInput{Title: tooLong, Description: "d"}, nil)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	_, err = f.svc.CreateIssue(ctx, f.project.PID, f.admin.UID, issue.CreateIssueInput{
		Title: "t", Description: "d", Status: strings.Repeat("s", issue.MaxStatusLength+1),
	}, nil)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr(tooLong)})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	_, err = f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Status: strPtr(strings.Repeat("s", issue.MaxStatusLength+1))})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.Equal(t, 0, f.raw(t, created.ID).Version, "rejected updates change nothing")

	updated, err := f.svc.UpdateIssue(ctx, created.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr(strings.Repeat("題", issue.MaxTitleLength))})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
}

func TestDeleteIssue_SubtaskDoesNotCascade(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	parent := f.create(t, issue.CreateIssueInput{Type: issue.TypeStory})
	sub := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &parent.ID})
	subOfSub := f.create(t, issue.CreateIssueInput{Type: issue.TypeSubtask, Parent: &sub.ID})

	require.NoError(t, f.svc.DeleteIssue(context.Background(), sub.ID, f.admin.UID))

	assert.False(t, f.raw(t, parent.ID).IsDeleted)
	assert.False(t, f.raw(t, subOfSub.ID).IsDeleted)
	entries := f.history(t, sub.ID)
	assert.JSONEq(t, `{"isDeleted":true,"cascadedSubtasks":0}`, string(entries[len(entries)-1].To))
}

func TestSoftDeletedIssuesAreHidden(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	keep := f.create(t, issue.CreateIssueInput{Title: "Keep"})
	gone := f.create(t, issue.CreateIssueInput{Title: "Gone"})
	ctx := context.Background()
	require.NoError(t, f.svc.DeleteIssue(ctx, gone.ID, f.admin.UID))

	_, err := f.svc.GetIssue(ctx, gone.ID, "")
	assert.ErrorIs(t, err, ErrIssueNotFound)
	_, err = f.svc.UpdateIssue(ctx, gone.ID, f.admin.UID, issue.UpdateIssueInput{Title: strPtr("Back")})
	assert.ErrorIs(t, err, ErrIssueNotFound)
	_, err = f.svc.ListHistory(ctx, gone.ID)
	assert.ErrorIs(t, err, ErrIssueNotFound)

	items, page, err := f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{Search: "e"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
	assert.Equal(t, int64(1), page.TotalItems)
}

func TestListIssues_PriorityOrdering(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	for _, p := range []string{"low", "high", "medium"} {
		f.create(t, issue.CreateIssueInput{Title: p, Priority: p})
	}
	ctx := context.Background()

	items, _, err := f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{SortBy: "priorityOrder", SortOrder: "ASC"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"high", "medium", "low"}, []string{items[0].Priority, items[1].Priority, items[2].Priority})

	items, _, err = f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{SortBy: "priorityOrder"})
	require.NoError(t, err)
	assert.Equal(t, "low", items[0].Priority)
}

func TestListIssues_Pagination(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	for i := 0; i < 25; i++ {
		f.create(t, issue.CreateIssueInput{Title: fmt.Sprintf("Issue %d", i)})
	}

	items, page, err := f.svc.ListIssues(context.Background(), f.project.PID, issue.ListQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(25), page.TotalItems)
	assert.False(t, page.HasNextPage)
	assert.True(t, page.HasPrevPage)
	assert.Equal(t, 10, page.Limit)

	// Default order is newest first, so the last page holds the oldest issues.
	assert.Equal(t, "ABCD-1", items[4].Key)
}

func TestListIssues_Filters(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	bug := f.create(t, issue.CreateIssueInput{Title: "Crash on save", Type: issue.TypeBug, Labels: []string{"backend"}, Assignee: &f.member.UID})
	f.create(t, issue.CreateIssueInput{Title: "Polish header", Labels: []string{"ui"}, Status: "done"})
	f.create(t, issue.CreateIssueInput{Title: "100% coverage", Priority: "low"})
	ctx := context.Background()

	list := func(q issue.ListQuery) []string {
		items, _, err := f.svc.ListIssues(ctx, f.project.PID, q)
		require.NoError(t, err)
		var titles []string
		for _, i := range items {
			titles = append(titles, i.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"Crash on save"}, list(issue.ListQuery{Type: "BUG"}))
	assert.Equal(t, []string{"Polish header"}, list(issue.ListQuery{Status: "done"}))
	assert.Equal(t, []string{"100% coverage"}, list(issue.ListQuery{Priority: "low"}))
	assert.Equal(t, []string{"Crash on save"}, list(issue.ListQuery{Assignee: &f.member.UID}))
	assert.Equal(t, []string{"Polish header", "Crash on save"}, list(issue.ListQuery{Labels: []string{"ui,backend"}}))
	assert.Equal(t, []string{"Crash on save"}, list(issue.ListQuery{Search: strings.ToLower(bug.Key)}))
	assert.Equal(t, []string{"100% coverage"}, list(issue.ListQuery{Search: "100%"}))
	assert.Equal(t, []string{"100% coverage", "Polish header", "Crash on save"}, list(issue.ListQuery{SortBy: "title; DROP TABLE issues"}))

	items, _, err := f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{Labels: []string{"backend"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Assignee)
	assert.Equal(t, "bob", items[0].Assignee.Name)
	assert.Equal(t, []string{"backend"}, items[0].Labels)
}

func TestListIssues_InvalidPaging(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	ctx := context.Background()

	_, _, err := f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{Page: 1, Limit: 101})
	assert.ErrorIs(t, err, ErrInvalidPagination)
	_, _, err = f.svc.ListIssues(ctx, f.project.PID, issue.ListQuery{Page: -1})
	assert.ErrorIs(t, err, ErrInvalidPagination)
	_, _, err = f.svc.ListIssues(ctx, 9999, issue.ListQuery{})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestAssignment(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{})
	ctx := context.Background()

	_, err := f.svc.Reassign(ctx, created.ID, f.admin.UID, f.member.UID)
	assert.ErrorIs(t, err, ErrNotAssigned)
	_, err = f.svc.Assign(ctx, created.ID, f.admin.UID, f.outsider.UID)
	assert.ErrorIs(t, err, ErrAssigneeNotMember)

	assigned, err := f.svc.Assign(ctx, created.ID, f.admin.UID, f.member.UID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, f.member.UID, *assigned.AssigneeID)
	assert.Equal(t, 1, assigned.Version)

	_, err = f.svc.Assign(ctx, created.ID, f.admin.UID, f.admin.UID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	_, err = f.svc.Reassign(ctx, created.ID, f.admin.UID, f.member.UID)
	assert.ErrorIs(t, err, ErrSameAssignee)

	reassigned, err := f.svc.Reassign(ctx, created.ID, f.admin.UID, f.admin.UID)
	require.NoError(t, err)
	assert.Equal(t, f.admin.UID, *reassigned.AssigneeID)

	unassigned, err := f.svc.Unassign(ctx, created.ID, f.admin.UID)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssigneeID)
	assert.Equal(t, 3, unassigned.Version)

	_, err = f.svc.Unassign(ctx, created.ID, f.admin.UID)
	assert.ErrorIs(t, err, ErrNotAssigned)

	entries := f.history(t, created.ID)
	require.Len(t, entries, 4)
	assign := entries[1]
	assert.Equal(t, issue.ActionUpdate, assign.Action)
	assert.Equal(t, "assignee", *assign.Field)
	assert.JSONEq(t, "null", string(assign.From))
	assert.JSONEq(t, fmt.Sprint(f.member.UID), string(assign.To))

	assert.Equal(t, []string{events.IssueCreated, events.IssueAssigned, events.IssueAssigned, events.IssueUnassigned}, f.events.types())
}

func TestListHistory_NewestFirstWithActor(t *testing.T) {
	f := newIssueFixture(t, "Alpha", "ABCD")
	created := f.create(t, issue.CreateIssueInput{})
	_, err := f.svc.UpdateIssue(context.Background(), created.ID, f.member.UID, issue.UpdateIssueInput{Status: strPtr("closed")})
	require.NoError(t, err)

	entries, err := f.svc.ListHistory(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, issue.ActionStatusChange, entries[0].Action)
	require.NotNil(t, entries[0].Actor)
	assert.Equal(t, "bob", entries[0].Actor.Name)
	assert.Equal(t, issue.ActionCreate, entries[1].Action)
}
