package events

import (
	"context"
	"errors"
	"time"
)

const (
	IssueCreated    = "issue.created"
	IssueUpdated    = "issue.updated"
	IssueDeleted    = "issue.deleted"
	IssueAssigned   = "issue.assigned"
	IssueUnassigned = "issue.unassigned"
	CommentAdded    = "comment.added"
)

// Event describes a committed issue mutation.
type Event struct {
	Type      string    `json:"type"`
	ProjectID uint      `json:"projectId"`
	IssueID   uint      `json:"issueId"`
	IssueKey  string    `json:"issueKey"`
	ActorID   uint      `json:"actorId"`
	At        time.Time `json:"at"`
	Changes   any       `json:"changes,omitempty"`
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
