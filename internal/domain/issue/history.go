package issue

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionStatusChange   = "STATUS_CHANGE"
	ActionPriorityChange = "PRIORITY_CHANGE"
	ActionDelete         = "DELETE"
)

// History is an append-only audit entry written in the same transaction as the
// issue mutation it describes.
type History struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	IssueID   uint           `gorm:"not null;index" json:"issueId"`
	Action    string         `gorm:"size:20;not null" json:"action"`
	ActorID   uint           `gorm:"column:changed_by;not null" json:"changedBy"`
	Field     *string        `gorm:"size:50" json:"field,omitempty"`
	From      datatypes.JSON `gorm:"column:from_value" json:"from,omitempty"`
	To        datatypes.JSON `gorm:"column:to_value" json:"to,omitempty"`
	Timestamp time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"timestamp"`

	Actor *UserRef `gorm:"foreignKey:ActorID;references:UID;-:migration" json:"actor,omitempty"`
}

func (History) TableName() string {
	return "issue_histories"
}

// ActionFor picks the history action for a changed field.
func ActionFor(field string) string {
	switch field {
	case "status":
		return ActionStatusChange
	case "priority":
		return ActionPriorityChange
	default:
		return ActionUpdate
	}
}

// JSONValue encodes v for a history from/to column. A nil value is recorded
// as JSON null; leave the column unset to store SQL NULL.
func JSONValue(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// FieldChange is one applied field difference.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}
