package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repos struct {
	User    UserRepo
	Project ProjectRepo
	Issue   IssueRepo
	History HistoryRepo
	Comment CommentRepo

	db *gorm.DB
}

func NewRepositories(db *gorm.DB) *Repos {
	return &Repos{
		User:    NewUserRepo(db),
		Project: NewProjectRepo(db),
		Issue:   NewIssueRepo(db),
		History: NewHistoryRepo(db),
		Comment: NewCommentRepo(db),
		db:      db,
	}
}

func (r *Repos) WithTx(tx *gorm.DB) *Repos {
	return &Repos{
		User:    r.User.WithTx(tx),
		Project: r.Project.WithTx(tx),
		Issue:   r.Issue.WithTx(tx),
		History: r.History.WithTx(tx),
		Comment: r.Comment.WithTx(tx),
		db:      tx,
	}
}

// ExecTx runs fn inside one database transaction. Any error rolls back every
// write made through the transactional Repos. Repos assembled without a database
// (mocked repositories) run fn directly.
func (r *Repos) ExecTx(ctx context.Context, fn func(*Repos) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
