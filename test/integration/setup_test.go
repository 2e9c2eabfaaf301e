//go:build integration
// +build integration

package integration

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/api/routes"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/ratelimit"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/internal/testutils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestContext holds the dependencies shared by the postgres suite.
type TestContext struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Services *application.Services
}

func setupTestContext(t *testing.T) *TestContext {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.JwtSecret = "test-secret-key-for-integration-testing"
	config.RefreshTokenSecret = "test-refresh-key-for-integration-testing"
	config.AccessTokenTTL = 15 * time.Minute
	config.RefreshTokenTTL = time.Hour
	config.Issuer = "zeera-test"
	middleware.Init()

	gdb := testutils.NewPostgresDB(t)
	repos := repository.NewRepositories(gdb)
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	hub := events.NewHub()
	services := application.New(repos, hub, blobs)
	router := routes.NewRouter(routes.Deps{
		Services:       services,
		Repos:          repos,
		Hub:            hub,
		GeneralLimiter: ratelimit.NewStore(10000, time.Minute),
		AuthLimiter:    ratelimit.NewStore(1000, time.Minute),
	})
	return &TestContext{DB: gdb, Router: router, Services: services}
}

func (tc *TestContext) Login(t *testing.T, email string) *testutils.HTTPClient {
	t.Helper()
	resp, err := testutils.NewHTTPClient(tc.Router, "").POST("/api/auth/login", map[string]string{
		"email":    email,
		"password": testutils.DefaultPassword,
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode, string(resp.Body))

	var result user.LoginResult
	require.NoError(t, resp.DecodeData(&result))
	return testutils.NewHTTPClient(tc.Router, result.AccessToken)
}
