package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/linskybing/zeera/internal/config/db"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgresDB returns a migrated postgres database. TEST_DB_DSN points at an
// existing server; otherwise a throwaway container is started.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		req := testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_USER":     "test",
				"POSTGRES_DB":       "zeera",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}
		pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

		host, err := pg.Host(ctx)
		require.NoError(t, err)
		port, err := pg.MappedPort(ctx, "5432")
		require.NoError(t, err)
		dsn = fmt.Sprintf("postgres://test:test@%s:%s/zeera?sslmode=disable", host, port.Port())
	}

	require.NoError(t, waitForPostgres(ctx, dsn))

	// Unique violations only translate to gorm.ErrDuplicatedKey through the pgx driver.
	gdb, err := gorm.Open(postgres.Open(dsn), db.GormConfig())
	require.NoError(t, err)
	if sqlDB, err := gdb.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	require.NoError(t, gdb.Migrator().DropTable(db.Models()...))
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// waitForPostgres pings through lib/pq until the server accepts connections.
func waitForPostgres(ctx context.Context, dsn string) error {
	var err error
	for i := 0; i < 10; i++ {
		var sqlDB *sql.DB
		sqlDB, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqlDB.PingContext(ctx)
			_ = sqlDB.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("postgres not reachable: %w", err)
}
