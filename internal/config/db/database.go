package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

const connectMaxElapsed = 30 * time.Second

// GormConfig is shared by the postgres connection and test databases so that
// duplicate-key errors are translated to gorm.ErrDuplicatedKey everywhere.
func GormConfig() *gorm.Config {
	level := logger.Warn
	if config.IsDevelopment {
		level = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}
}

func DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DbHost,
		config.DbPort,
		config.DbUser,
		config.DbPassword,
		config.DbName,
		config.DbSSLMode,
	)
}

// Init connects to postgres, retrying while the server comes up.
func Init(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	var gdb *gorm.DB
	err := backoff.Retry(func() error {
		var err error
		gdb, err = gorm.Open(postgres.Open(DSN()), GormConfig())
		if err != nil {
			slog.Warn("database not ready, retrying", "host", config.DbHost, "error", err)
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		return sqlDB.PingContext(ctx)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	DB = gdb
	slog.Info("database connected", "host", config.DbHost, "name", config.DbName)
	return nil
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&user.User{},
		&project.Project{},
		&project.Member{},
		&issue.Issue{},
		&issue.Label{},
		&issue.History{},
		&issue.Comment{},
	}
}

// Migrate creates or updates the schema, including the (project_id, issue_key) unique index.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
