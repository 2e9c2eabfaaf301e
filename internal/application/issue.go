package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/internal/telemetry"
	"github.com/linskybing/zeera/pkg/response"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	keyAllocRetries = 5
	maxLabels       = 20
	maxLabelLength  = 50
)

type IssueService struct {
	Repos  *repository.Repos
	events events.Publisher
	blobs  storage.BlobStore
	now    func() time.Time

	// keyBackoff paces retries after an issue key collision.
	keyBackoff func() backoff.BackOff
}

func NewIssueService(repos *repository.Repos, publisher events.Publisher, blobs storage.BlobStore) *IssueService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &IssueService{
		Repos:  repos,
		events: publisher,
		blobs:  blobs,
		now:    time.Now,
		keyBackoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 10 * time.Millisecond
			bo.MaxInterval = 200 * time.Millisecond
			return backoff.WithMaxRetries(bo, keyAllocRetries)
		},
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, "IssueService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errs.Message(err))
	}
	span.End()
}

func (s *IssueService) publish(ctx context.Context, ev events.Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.Warn("publish issue event", "type", ev.Type, "issue_id", ev.IssueID, "error", err)
	}
}

// CreateIssue validates input, makes sure the project has a key, stores the
// attachments and inserts the issue with its CREATE history entry.
func (s *IssueService) CreateIssue(ctx context.Context, projectID, reporterID uint, input issue.CreateIssueInput, files []issue.NewAttachment) (_ *issue.Issue, err error) {
	ctx, span := startSpan(ctx, "CreateIssue", attribute.Int64("project.id", int64(projectID)))
	defer func() { endSpan(span, err) }()

	draft, err := s.buildDraft(input)
	if err != nil {
		return nil, err
	}

	p, err := s.Repos.Project.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, errs.FromStore(err, ErrProjectNotFound)
	}
	draft.ProjectID = projectID
	draft.ReporterID = reporterID

	if assignee := input.AssigneeID(); assignee != nil {
		if err := s.requireMember(ctx, s.Repos, projectID, *assignee); err != nil {
			return nil, err
		}
		draft.AssigneeID = assignee
	}
	if input.Parent != nil {
		parent, err := s.Repos.Issue.GetIssueByID(ctx, *input.Parent, nil)
		if err != nil {
			return nil, errs.FromStore(err, errs.NotFound("parent issue not found"))
		}
		if parent.ProjectID != projectID {
			return nil, ErrInvalidParent
		}
		draft.ParentID = input.Parent
	}

	projectKey, err := s.ensureProjectKey(ctx, p)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeAttachments(ctx, projectID, files)
	if err != nil {
		return nil, err
	}
	draft.Attachments = stored

	if err := s.insertWithKey(ctx, draft, projectKey); err != nil {
		s.discardAttachments(stored)
		return nil, err
	}
	span.SetAttributes(attribute.String("issue.key", draft.Key))

	created, err := s.Repos.Issue.GetIssueByID(ctx, draft.ID, issue.CreatedPopulate)
	if err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	s.publish(ctx, events.Event{
		Type:      events.IssueCreated,
		ProjectID: projectID,
		IssueID:   created.ID,
		IssueKey:  created.Key,
		ActorID:   reporterID,
		At:        created.CreatedAt,
	})
	return &created, nil
}

func (s *IssueService) buildDraft(input issue.CreateIssueInput) (*issue.Issue, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, ErrMissingTitleOrDesc
	}
	if err := checkLength("title", title, issue.MaxTitleLength); err != nil {
		return nil, err
	}

	typ := strings.ToLower(strings.TrimSpace(input.Type))
	if typ == "" {
		typ = issue.TypeTask
	}
	if !issue.ValidType(typ) {
		return nil, errs.Validation("type must be one of task, bug, story, subtask")
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = issue.StatusOpen
	}
	if err := checkLength("status", status, issue.MaxStatusLength); err != nil {
		return nil, err
	}
	priority, order := issue.NormalizePriority(input.Priority)

	due, err := issue.ParseDate(input.DueDate)
	if err != nil {
		return nil, errs.Validation(err.Error())
	}
	labels, err := normalizeLabels(input.Labels)
	if err != nil {
		return nil, err
	}

	draft := &issue.Issue{
		Title:         title,
		Description:   description,
		Type:          typ,
		Priority:      priority,
		PriorityOrder: order,
		Status:        status,
		DueDate:       due,
		Attachments:   []issue.Attachment{},
	}
	for _, l := range labels {
		draft.LabelRows = append(draft.LabelRows, issue.Label{Name: l})
	}
	return draft, nil
}

// checkLength bounds v by characters, matching the varchar column limits.
func checkLength(name, v string, limit int) error {
	if utf8.RuneCountInString(v) > limit {
		return errs.Validation(fmt.Sprintf("%s must be at most %d characters", name, limit))
	}
	return nil
}

// normalizeLabels trims, de-duplicates and splits comma separated labels.
func normalizeLabels(raw []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, entry := range raw {
		for _, l := range strings.Split(entry, ",") {
			l = strings.TrimSpace(l)
			if l == "" || seen[l] {
				continue
			}
			if len(l) > maxLabelLength {
				return nil, errs.Validation("labels must be at most 50 characters")
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	if len(out) > maxLabels {
		return nil, errs.Validation("an issue can carry at most 20 labels")
	}
	return out, nil
}

// ensureProjectKey derives and persists the project key on first use. The
// write is conditional so concurrent first issues converge on one key.
func (s *IssueService) ensureProjectKey(ctx context.Context, p project.Project) (string, error) {
	if p.Key != "" {
		return p.Key, nil
	}
	if _, err := s.Repos.Project.SetKeyIfEmpty(ctx, p.PID, project.GenerateKey(p.Name)); err != nil {
		return "", errs.Internal(err)
	}
	fresh, err := s.Repos.Project.GetProjectByID(ctx, p.PID)
	if err != nil {
		return "", errs.FromStore(err, ErrProjectNotFound)
	}
	return fresh.Key, nil
}

// insertWithKey numbers the issue from the project's issue count and inserts it
// together with its CREATE entry. A key collision with a concurrent insert is
// retried with a fresh count.
func (s *IssueService) insertWithKey(ctx context.Context, draft *issue.Issue, projectKey string) error {
	labels := draft.LabelRows
	op := func() error {
		draft.ID = 0
		draft.LabelRows = append([]issue.Label(nil), labels...)
		return s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
			count, err := tx.Issue.CountByProject(ctx, draft.ProjectID)
			if err != nil {
				return backoff.Permanent(err)
			}
			draft.Key = fmt.Sprintf("%s-%d", projectKey, count+1)
			if err := tx.Issue.CreateIssue(ctx, draft); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
				return backoff.Permanent(err)
			}
			entry := issue.History{
				IssueID: draft.ID,
				Action:  issue.ActionCreate,
				ActorID: draft.ReporterID,
				To:      issue.JSONValue(map[string]any{"key": draft.Key, "title": draft.Title}),
			}
			if err := tx.History.CreateHistory(ctx, []issue.History{entry}); err != nil {
				return backoff.Permanent(err)
			}
			return nil
		})
	}

	err := backoff.Retry(op, backoff.WithContext(s.keyBackoff(), ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrKeyAllocation.Wrap(err)
	default:
		return errs.FromStore(err, nil)
	}
}

func (s *IssueService) storeAttachments(ctx context.Context, projectID uint, files []issue.NewAttachment) ([]issue.Attachment, error) {
	stored := []issue.Attachment{}
	if len(files) == 0 {
		return stored, nil
	}
	if s.blobs == nil {
		return nil, errs.Validation("attachments are not supported on this server")
	}
	for _, f := range files {
		if err := storage.ValidateUpload(f.Size, f.MimeType); err != nil {
			s.discardAttachments(stored)
			return nil, ErrInvalidAttachment.Wrap(fmt.Errorf("%s: %w", f.OriginalName, err))
		}
		key := storage.ObjectKey(projectID, f.OriginalName)
		path, err := s.putBlob(ctx, key, f)
		if err != nil {
			s.discardAttachments(stored)
			return nil, errs.Internal(err)
		}
		stored = append(stored, issue.Attachment{
			Filename:     key,
			OriginalName: f.OriginalName,
			Path:         path,
			Size:         f.Size,
			MimeType:     f.MimeType,
		})
	}
	return stored, nil
}

func (s *IssueService) putBlob(ctx context.Context, key string, f issue.NewAttachment) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.blobs.Put(ctx, key, rc, f.Size, f.MimeType)
}

// discardAttachments removes blobs of an issue that was never persisted.
func (s *IssueService) discardAttachments(stored []issue.Attachment) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, a := range stored {
		if err := s.blobs.Delete(ctx, a.Filename); err != nil {
			slog.Warn("remove orphaned attachment", "key", a.Filename, "error", err)
		}
	}
}

// GetIssue returns a non-deleted issue. populateSpec selects the resolved
// relations; empty means assignee, reporter and parent.
func (s *IssueService) GetIssue(ctx context.Context, id uint, populateSpec string) (*issue.Issue, error) {
	populate, err := issue.ParsePopulate(populateSpec)
	if err != nil {
		return nil, errs.Validation("invalid populate: " + err.Error())
	}
	if populate == nil {
		populate = issue.DefaultPopulate
	}
	i, err := s.Repos.Issue.GetIssueByID(ctx, id, populate)
	if err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	return &i, nil
}

// ProjectIDOf resolves the project of a non-deleted issue.
func (s *IssueService) ProjectIDOf(ctx context.Context, id uint) (uint, error) {
	i, err := s.Repos.Issue.GetIssueByID(ctx, id, nil)
	if err != nil {
		return 0, errs.FromStore(err, ErrIssueNotFound)
	}
	return i.ProjectID, nil
}

// UpdateIssue applies the fields that differ from the stored issue and writes
// one history entry per changed field, all in one transaction.
func (s *IssueService) UpdateIssue(ctx context.Context, id, actorID uint, input issue.UpdateIssueInput) (_ *issue.Issue, err error) {
	ctx, span := startSpan(ctx, "UpdateIssue", attribute.Int64("issue.id", int64(id)))
	defer func() { endSpan(span, err) }()

	var (
		changes []issue.FieldChange
		current issue.Issue
	)
	err = s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		var err error
		current, err = tx.Issue.GetIssueByID(ctx, id, nil)
		if err != nil {
			return errs.FromStore(err, ErrIssueNotFound)
		}
		if input.ExpectedVersion != nil && *input.ExpectedVersion != current.Version {
			return ErrVersionConflict
		}

		var fields map[string]any
		fields, changes, err = diffUpdate(current, input)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return ErrNoValidChanges
		}

		n, err := tx.Issue.UpdateIssue(ctx, id, current.Version, fields)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}

		entries := make([]issue.History, 0, len(changes))
		for _, ch := range changes {
			field := ch.Field
			entries = append(entries, issue.History{
				IssueID: id,
				Action:  issue.ActionFor(field),
				ActorID: actorID,
				Field:   &field,
				From:    issue.JSONValue(ch.From),
				To:      issue.JSONValue(ch.To),
			})
		}
		return tx.History.CreateHistory(ctx, entries)
	})
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}
	span.SetAttributes(attribute.Int("issue.changes", len(changes)))

	updated, err := s.Repos.Issue.GetIssueByID(ctx, id, issue.DefaultPopulate)
	if err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	s.publish(ctx, events.Event{
		Type:      events.IssueUpdated,
		ProjectID: updated.ProjectID,
		IssueID:   id,
		IssueKey:  updated.Key,
		ActorID:   actorID,
		At:        updated.UpdatedAt,
		Changes:   changes,
	})
	return &updated, nil
}

// diffUpdate compares the allowed fields with the stored issue and returns the
// column updates together with the field-level changes.
func diffUpdate(current issue.Issue, input issue.UpdateIssueInput) (map[string]any, []issue.FieldChange, error) {
	fields := map[string]any{}
	var changes []issue.FieldChange

	text := func(name, column string, value *string, stored string, limit int) error {
		if value == nil {
			return nil
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			return errs.Validation(name + " cannot be empty")
		}
		if limit > 0 {
			if err := checkLength(name, v, limit); err != nil {
				return err
			}
		}
		if v != stored {
			fields[column] = v
			changes = append(changes, issue.FieldChange{Field: name, From: stored, To: v})
		}
		return nil
	}
	if err := text("title", "title", input.Title, current.Title, issue.MaxTitleLength); err != nil {
		return nil, nil, err
	}
	if err := text("description", "description", input.Description, current.Description, 0); err != nil {
		return nil, nil, err
	}
	if err := text("status", "status", input.Status, current.Status, issue.MaxStatusLength); err != nil {
		return nil, nil, err
	}

	if input.Priority != nil {
		p := strings.ToLower(strings.TrimSpace(*input.Priority))
		order, ok := issue.PriorityOrder(p)
		if !ok {
			return nil, nil, errs.Validation("priority must be one of high, medium, low")
		}
		if p != current.Priority {
			fields["priority"] = p
			fields["priority_order"] = order
			changes = append(changes, issue.FieldChange{Field: "priority", From: current.Priority, To: p})
		}
	}

	if input.DueDate.Set && !sameTime(current.DueDate, input.DueDate.Value) {
		fields["due_date"] = input.DueDate.Value
		changes = append(changes, issue.FieldChange{Field: "dueDate", From: timeValue(current.DueDate), To: timeValue(input.DueDate.Value)})
	}
	return fields, changes, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// DeleteIssue soft-deletes the issue and, unless it is itself a subtask, its
// live subtasks. Only the parent gets a DELETE history entry; it records how
// many subtasks were cascaded.
func (s *IssueService) DeleteIssue(ctx context.Context, id, actorID uint) (err error) {
	ctx, span := startSpan(ctx, "DeleteIssue", attribute.Int64("issue.id", int64(id)))
	defer func() { endSpan(span, err) }()

	var (
		target   issue.Issue
		cascaded int64
	)
	now := s.now().UTC()
	err = s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		var err error
		target, err = tx.Issue.GetIssueByID(ctx, id, nil)
		if err != nil {
			return errs.FromStore(err, ErrIssueAlreadyDeleted)
		}
		n, err := tx.Issue.SoftDeleteIssue(ctx, id, actorID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrIssueAlreadyDeleted
		}
		if target.Type != issue.TypeSubtask {
			cascaded, err = tx.Issue.SoftDeleteSubtasks(ctx, id, actorID, now)
			if err != nil {
				return err
			}
		}
		field := "isDeleted"
		return tx.History.CreateHistory(ctx, []issue.History{{
			IssueID: id,
			Action:  issue.ActionDelete,
			ActorID: actorID,
			Field:   &field,
			From:    issue.JSONValue(false),
			To:      issue.JSONValue(map[string]any{"isDeleted": true, "cascadedSubtasks": cascaded}),
		}})
	})
	if err != nil {
		return errs.FromStore(err, nil)
	}
	span.SetAttributes(attribute.Int64("issue.cascaded_subtasks", cascaded))

	s.publish(ctx, events.Event{
		Type:      events.IssueDeleted,
		ProjectID: target.ProjectID,
		IssueID:   id,
		IssueKey:  target.Key,
		ActorID:   actorID,
		At:        now,
		Changes:   map[string]any{"cascadedSubtasks": cascaded},
	})
	return nil
}

// ListHistory returns the audit trail of a live issue, newest first.
func (s *IssueService) ListHistory(ctx context.Context, id uint) ([]issue.History, error) {
	if _, err := s.Repos.Issue.GetIssueByID(ctx, id, nil); err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	entries, err := s.Repos.History.ListByIssue(ctx, id)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return entries, nil
}

func (s *IssueService) requireMember(ctx context.Context, repos *repository.Repos, projectID, userID uint) error {
	_, err := repos.Project.GetMember(ctx, projectID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAssigneeNotMember
	}
	if err != nil {
		return errs.Internal(err)
	}
	return nil
}

// ListIssues returns one page of live issues of a project. The page and the
// total are read in parallel.
func (s *IssueService) ListIssues(ctx context.Context, projectID uint, q issue.ListQuery) (_ []issue.Issue, _ response.Pagination, err error) {
	ctx, span := startSpan(ctx, "ListIssues", attribute.Int64("project.id", int64(projectID)))
	defer func() { endSpan(span, err) }()

	q, err = normalizeListQuery(q)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	if _, err := s.Repos.Project.GetProjectByID(ctx, projectID); err != nil {
		return nil, response.Pagination{}, errs.FromStore(err, ErrProjectNotFound)
	}

	var (
		items []issue.Issue
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.Repos.Issue.ListIssues(gctx, projectID, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.Repos.Issue.CountIssues(gctx, projectID, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, response.Pagination{}, errs.Internal(err)
	}
	if items == nil {
		items = []issue.Issue{}
	}
	return items, response.NewPagination(q.Page, q.Limit, total), nil
}

func normalizeListQuery(q issue.ListQuery) (issue.ListQuery, error) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if err := validatePage(q.Page, q.Limit); err != nil {
		return q, err
	}
	if strings.ToLower(strings.TrimSpace(q.SortOrder)) == "asc" {
		q.SortOrder = "asc"
	} else {
		q.SortOrder = "desc"
	}
	q.Priority = strings.ToLower(strings.TrimSpace(q.Priority))
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	q.Status = strings.TrimSpace(q.Status)
	labels, err := normalizeLabels(q.Labels)
	if err != nil {
		return q, err
	}
	q.Labels = labels
	if q.Populate == nil {
		q.Populate = issue.DefaultPopulate
	}
	return q, nil
}

type assignMode int

const (
	modeAssign assignMode = iota
	modeReassign
	modeUnassign
)

// Assign sets the assignee of an unassigned issue.
func (s *IssueService) Assign(ctx context.Context, id, actorID, assigneeID uint) (*issue.Issue, error) {
	return s.changeAssignee(ctx, id, actorID, modeAssign, &assigneeID)
}

// Reassign moves an assigned issue to a different member.
func (s *IssueService) Reassign(ctx context.Context, id, actorID, assigneeID uint) (*issue.Issue, error) {
	return s.changeAssignee(ctx, id, actorID, modeReassign, &assigneeID)
}

func (s *IssueService) Unassign(ctx context.Context, id, actorID uint) (*issue.Issue, error) {
	return s.changeAssignee(ctx, id, actorID, modeUnassign, nil)
}

func (s *IssueService) changeAssignee(ctx context.Context, id, actorID uint, mode assignMode, assigneeID *uint) (_ *issue.Issue, err error) {
	ctx, span := startSpan(ctx, "ChangeAssignee", attribute.Int64("issue.id", int64(id)))
	defer func() { endSpan(span, err) }()

	var previous *uint
	err = s.Repos.ExecTx(ctx, func(tx *repository.Repos) error {
		current, err := tx.Issue.GetIssueByID(ctx, id, nil)
		if err != nil {
			return errs.FromStore(err, ErrIssueNotFound)
		}
		previous = current.AssigneeID

		switch mode {
		case modeAssign:
			if previous != nil {
				return ErrAlreadyAssigned
			}
		case modeReassign:
			if previous == nil {
				return ErrNotAssigned
			}
			if *previous == *assigneeID {
				return ErrSameAssignee
			}
		case modeUnassign:
			if previous == nil {
				return ErrNotAssigned
			}
		}
		if assigneeID != nil {
			if err := s.requireMember(ctx, tx, current.ProjectID, *assigneeID); err != nil {
				return err
			}
		}

		n, err := tx.Issue.UpdateIssue(ctx, id, current.Version, map[string]any{"assignee_id": assigneeID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrVersionConflict
		}
		field := "assignee"
		return tx.History.CreateHistory(ctx, []issue.History{{
			IssueID: id,
			Action:  issue.ActionUpdate,
			ActorID: actorID,
			Field:   &field,
			From:    issue.JSONValue(previous),
			To:      issue.JSONValue(assigneeID),
		}})
	})
	if err != nil {
		return nil, errs.FromStore(err, nil)
	}

	updated, err := s.Repos.Issue.GetIssueByID(ctx, id, issue.DefaultPopulate)
	if err != nil {
		return nil, errs.FromStore(err, ErrIssueNotFound)
	}
	evType := events.IssueAssigned
	if mode == modeUnassign {
		evType = events.IssueUnassigned
	}
	s.publish(ctx, events.Event{
		Type:      evType,
		ProjectID: updated.ProjectID,
		IssueID:   id,
		IssueKey:  updated.Key,
		ActorID:   actorID,
		At:        updated.UpdatedAt,
		Changes:   issue.FieldChange{Field: "assignee", From: previous, To: assigneeID},
	})
	return &updated, nil
}
