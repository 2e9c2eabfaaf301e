package issue

import "time"

const MaxCommentLength = 5000

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IssueID   uint      `gorm:"not null;index" json:"issueId"`
	AuthorID  uint      `gorm:"not null" json:"authorId"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Author *UserRef `gorm:"foreignKey:AuthorID;references:UID;-:migration" json:"author,omitempty"`
}

func (Comment) TableName() string {
	return "issue_comments"
}
