package issue

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// CreateIssueInput binds both JSON bodies and multipart forms.
// AssignedTo is accepted as an alias of Assignee.
type CreateIssueInput struct {
	Title       string   `json:"title" form:"title" example:"Login button misaligned"`
	Description string   `json:"description" form:"description" example:"On mobile the button overflows"`
	Type        string   `json:"type" form:"type" example:"bug"`
	Priority    string   `json:"priority" form:"priority" example:"high"`
	Status      string   `json:"status" form:"status" example:"open"`
	Assignee    *uint    `json:"assignee" form:"assignee" example:"2"`
	AssignedTo  *uint    `json:"assignedTo" form:"assignedTo"`
	Parent      *uint    `json:"parent" form:"parent"`
	Labels      []string `json:"labels" form:"labels"`
	DueDate     string   `json:"dueDate" form:"dueDate" example:"2026-12-31"`
}

// AssigneeID resolves the assignee from either accepted field.
func (in CreateIssueInput) AssigneeID() *uint {
	if in.AssignedTo != nil {
		return in.AssignedTo
	}
	return in.Assignee
}

// UpdateIssueInput carries the updatable fields. Nil means the field was not sent.
type UpdateIssueInput struct {
	Title           *string      `json:"title"`
	Description     *string      `json:"description"`
	Status          *string      `json:"status"`
	Priority        *string      `json:"priority"`
	DueDate         OptionalTime `json:"dueDate" swaggertype:"string"`
	ExpectedVersion *int         `json:"expectedVersion"`
}

type AssignInput struct {
	AssigneeID uint `json:"assigneeId" form:"assigneeId" binding:"required" example:"2"`
}

type CommentInput struct {
	Body string `json:"body" form:"body" example:"Reproduced on Safari too"`
}

// NewAttachment is an uploaded file handed to the service before it is stored.
type NewAttachment struct {
	OriginalName string
	Size         int64
	MimeType     string
	Open         func() (io.ReadCloser, error)
}

// ListQuery holds list filters, sort and paging for issues of one project.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	Status    string
	Priority  string
	Assignee  *uint
	Type      string
	Labels    []string
	Populate  Populate
}

var ErrInvalidDate = errors.New("invalid date, expected RFC3339 or YYYY-MM-DD")

// ParseDate accepts RFC3339 timestamps and plain dates.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	return nil, ErrInvalidDate
}

// OptionalTime distinguishes an absent dueDate from an explicit null.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidDate
	}
	t, err := ParseDate(raw)
	if err != nil {
		return err
	}
	o.Value = t
	return nil
}
