package issue

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TypeTask    = "task"
	TypeBug     = "bug"
	TypeStory   = "story"
	TypeSubtask = "subtask"

	StatusOpen = "open"

	// Column sizes of title and status, in characters.
	MaxTitleLength  = 255
	MaxStatusLength = 50
)

var validTypes = map[string]bool{TypeTask: true, TypeBug: true, TypeStory: true, TypeSubtask: true}

func ValidType(t string) bool { return validTypes[t] }

// Attachment is the metadata recorded for an uploaded file. The bytes live in the blob store.
type Attachment struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
}

// Issue is a unit of work inside a project. Soft-deleted issues keep their row
// and key so that key sequencing stays monotonic.
type Issue struct {
	ID            uint                            `gorm:"primaryKey;column:i_id;autoIncrement" json:"id"`
	ProjectID     uint                            `gorm:"not null;uniqueIndex:idx_issue_project_key;index:idx_issue_project_listing" json:"projectId"`
	Key           string                          `gorm:"column:issue_key;size:32;not null;uniqueIndex:idx_issue_project_key" json:"key"`
	Title         string                          `gorm:"size:255;not null" json:"title"`
	Description   string                          `gorm:"type:text;not null" json:"description"`
	Type          string                          `gorm:"size:20;not null" json:"type"`
	Priority      string                          `gorm:"size:20;not null" json:"priority"`
	PriorityOrder int                             `gorm:"not null" json:"priorityOrder"`
	Status        string                          `gorm:"size:50;not null;index" json:"status"`
	ReporterID    uint                            `gorm:"not null" json:"reporterId"`
	AssigneeID    *uint                           `gorm:"index" json:"assigneeId"`
	ParentID      *uint                           `gorm:"index" json:"parentId"`
	Attachments   datatypes.JSONSlice[Attachment] `json:"attachments"`
	DueDate       *time.Time                      `json:"dueDate"`
	IsDeleted     bool                            `gorm:"not null;default:false;index:idx_issue_project_listing" json:"isDeleted"`
	DeletedBy     *uint                           `json:"deletedBy,omitempty"`
	DeletedAt     *time.Time                      `json:"deletedAt,omitempty"`
	Version       int                             `gorm:"not null;default:0" json:"version"`
	CreatedAt     time.Time                       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                       `gorm:"autoUpdateTime" json:"updatedAt"`

	LabelRows []Label  `gorm:"foreignKey:IssueID;references:ID" json:"-"`
	Labels    []string `gorm:"-" json:"labels"`

	Reporter *UserRef    `gorm:"foreignKey:ReporterID;references:UID;-:migration" json:"reporter,omitempty"`
	Assignee *UserRef    `gorm:"foreignKey:AssigneeID;references:UID;-:migration" json:"assignee,omitempty"`
	Parent   *IssueRef   `gorm:"foreignKey:ParentID;references:ID;-:migration" json:"parent,omitempty"`
	Project  *ProjectRef `gorm:"foreignKey:ProjectID;references:PID;-:migration" json:"project,omitempty"`
}

func (Issue) TableName() string {
	return "issues"
}

// AfterFind exposes preloaded label rows as plain strings.
func (i *Issue) AfterFind(tx *gorm.DB) error {
	i.Labels = make([]string, 0, len(i.LabelRows))
	for _, l := range i.LabelRows {
		i.Labels = append(i.Labels, l.Name)
	}
	return nil
}

type Label struct {
	IssueID uint   `gorm:"primaryKey" json:"-"`
	Name    string `gorm:"primaryKey;size:50;index" json:"name"`
}

func (Label) TableName() string {
	return "issue_labels"
}

// UserRef is the projection of a user embedded in issue, history and comment responses.
type UserRef struct {
	UID   uint   `gorm:"primaryKey;column:u_id" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (UserRef) TableName() string { return "users" }

type IssueRef struct {
	ID       uint   `gorm:"primaryKey;column:i_id" json:"id"`
	Key      string `gorm:"column:issue_key" json:"key,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   string `json:"status,omitempty"`
	Type     string `json:"type,omitempty"`
	Priority string `json:"priority,omitempty"`
}

func (IssueRef) TableName() string { return "issues" }

type ProjectRef struct {
	PID         uint   `gorm:"primaryKey;column:p_id" json:"id"`
	Name        string `json:"name,omitempty"`
	Key         string `gorm:"column:project_key" json:"key,omitempty"`
	Description string `json:"description,omitempty"`
}

func (ProjectRef) TableName() string { return "projects" }
