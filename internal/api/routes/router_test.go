package routes_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/api/routes"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/issue"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/domain/user"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/ratelimit"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/internal/storage"
	"github.com/linskybing/zeera/internal/testutils"
	"github.com/linskybing/zeera/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiFixture struct {
	gdb    *gorm.DB
	router *gin.Engine
	hub    *events.Hub
}

func newAPI(t *testing.T, authLimit int) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.JwtSecret = "test-access-secret"
	config.RefreshTokenSecret = "test-refresh-secret"
	config.AccessTokenTTL = 15 * time.Minute
	config.RefreshTokenTTL = time.Hour
	config.Issuer = "zeera-test"
	middleware.Init()

	gdb := testutils.NewSQLiteDB(t)
	repos := repository.NewRepositories(gdb)
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	hub := events.NewHub()
	router := routes.NewRouter(routes.Deps{
		Services:       application.New(repos, hub, blobs),
		Repos:          repos,
		Hub:            hub,
		GeneralLimiter: ratelimit.NewStore(1000, time.Minute),
		AuthLimiter:    ratelimit.NewStore(authLimit, time.Minute),
	})
	return &apiFixture{gdb: gdb, router: router, hub: hub}
}

func (f *apiFixture) login(t *testing.T, email string) string {
	t.Helper()
	resp, err := testutils.NewHTTPClient(f.router, "").POST("/api/auth/login", map[string]string{
		"email":    email,
		"password": testutils.DefaultPassword,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	var result user.LoginResult
	require.NoError(t, resp.DecodeData(&result))
	return result.AccessToken
}

func (f *apiFixture) client(t *testing.T, u user.User) *testutils.HTTPClient {
	return testutils.NewHTTPClient(f.router, f.login(t, u.Email))
}

func TestHealthAndFallbacks(t *testing.T) {
	f := newAPI(t, 100)
	c := testutils.NewHTTPClient(f.router, "")

	resp, err := c.GET("/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `"status":"ok"`)
	assert.Equal(t, "nosniff", resp.Headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Headers.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Headers.Get(middleware.RequestIDHeader))

	resp, err = c.GET("/api/does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var notFound response.ErrorResponse
	require.NoError(t, resp.DecodeJSON(&notFound))
	assert.False(t, notFound.Success)
	assert.Equal(t, http.StatusNotFound, notFound.StatusCode)
	assert.Equal(t, "route GET /api/does-not-exist not found", notFound.Error)

	resp, err = c.GET("/api/projects")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	f := newAPI(t, 100)
	c := testutils.NewHTTPClient(f.router, "")

	resp, err := c.POST("/api/auth/register", map[string]string{
		"name":     "Jane",
		"email":    "Jane@Example.com",
		"password": "password123",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))
	var registered user.User
	require.NoError(t, resp.DecodeData(&registered))
	assert.Equal(t, "jane@example.com", registered.Email)
	assert.NotContains(t, string(resp.Body), "password123")

	t.Run("duplicate email", func(t *testing.T) {
		resp, err := c.POST("/api/auth/register", map[string]string{
			"name": "Other", "email": "jane@example.com", "password": "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid email", func(t *testing.T) {
		resp, err := c.POST("/api/auth/register", map[string]string{
			"name": "Other", "email": "not-an-email", "password": "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, err := c.POST("/api/auth/login", map[string]string{"email": "jane@example.com", "password": "nope-nope"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid credentials", resp.GetErrorMessage())
	})

	resp, err = c.POST("/api/auth/login", map[string]string{"email": "jane@example.com", "password": "password123"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, ck := range resp.Cookies {
		cookies[ck.Name] = ck
	}
	require.Contains(t, cookies, middleware.AccessCookie)
	require.Contains(t, cookies, middleware.RefreshCookie)
	assert.True(t, cookies[middleware.AccessCookie].HttpOnly)

	t.Run("me via cookie", func(t *testing.T) {
		resp, err := c.Do(testutils.Request{
			Method:  http.MethodGet,
			Path:    "/api/auth/me",
			Cookies: []*http.Cookie{cookies[middleware.AccessCookie]},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var me user.User
		require.NoError(t, resp.DecodeData(&me))
		assert.Equal(t, registered.UID, me.UID)
	})

	oldRefresh := cookies[middleware.RefreshCookie]
	resp, err = c.Do(testutils.Request{
		Method:  http.MethodPost,
		Path:    "/api/auth/refresh",
		Cookies: []*http.Cookie{oldRefresh},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	var rotated user.Tokens
	require.NoError(t, resp.DecodeData(&rotated))
	assert.NotEqual(t, oldRefresh.Value, rotated.RefreshToken)

	t.Run("rotated refresh token cannot be reused", func(t *testing.T) {
		resp, err := c.POST("/api/auth/refresh", map[string]string{"refreshToken": oldRefresh.Value})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	authed := testutils.NewHTTPClient(f.router, rotated.AccessToken)
	resp, err = authed.PUT("/api/auth/password", map[string]string{"oldPassword": "password123", "newPassword": "password456"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = authed.POST("/api/auth/logout", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.POST("/api/auth/refresh", map[string]string{"refreshToken": rotated.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	f := newAPI(t, 2)
	c := testutils.NewHTTPClient(f.router, "")
	creds := map[string]string{"email": "ghost@example.com", "password": "password123"}

	for i := 0; i < 2; i++ {
		resp, err := c.POST("/api/auth/login", creds)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, err := c.POST("/api/auth/login", creds)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Headers.Get("Retry-After"))

	// Other routes use the general limiter.
	resp, err = c.GET("/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectAndIssueFlow(t *testing.T) {
	f := newAPI(t, 100)
	alice := testutils.CreateUser(t, f.gdb, "alice")
	bob := testutils.CreateUser(t, f.gdb, "bob")
	mallory := testutils.CreateUser(t, f.gdb, "mallory")

	asAlice := f.client(t, alice)
	asBob := f.client(t, bob)
	asMallory := f.client(t, mallory)

	resp, err := asAlice.POST("/api/projects", map[string]string{"name": "Customer Portal"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))
	var p project.Project
	require.NoError(t, resp.DecodeData(&p))
	assert.Equal(t, "CUPO", p.Key)
	projectPath := fmt.Sprintf("/api/projects/%d", p.PID)

	resp, err = asAlice.POST(projectPath+"/members", map[string]string{"email": bob.Email})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	resp, err = asAlice.POST(projectPath+"/members", map[string]string{"email": bob.Email})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = asMallory.GET(projectPath)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = asBob.POST(projectPath+"/members", map[string]string{"email": mallory.Email})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "members cannot manage membership")

	resp, err = asBob.POST(projectPath+"/issues", map[string]any{
		"title":       "  Login broken ",
		"description": "500 on submit",
		"priority":    "HIGH",
		"labels":      []string{"auth"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))
	var created issue.Issue
	require.NoError(t, resp.DecodeData(&created))
	assert.Equal(t, "CUPO-1", created.Key)
	assert.Equal(t, "Login broken", created.Title)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, 1, created.PriorityOrder)
	assert.Equal(t, "open", created.Status)
	require.NotNil(t, created.Reporter)
	assert.Equal(t, "bob", created.Reporter.Name)
	issuePath := fmt.Sprintf("/api/issues/%d", created.ID)

	resp, err = asMallory.POST(projectPath+"/issues", map[string]any{"title": "x", "description": "y"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = asBob.POST(projectPath+"/issues", map[string]any{"title": "   ", "description": "y"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	t.Run("list with filters", func(t *testing.T) {
		resp, err := asBob.GET(projectPath+"/issues", map[string]string{"priority": "high", "search": "login"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page struct {
			Data       []issue.Issue       `json:"data"`
			Pagination response.Pagination `json:"pagination"`
		}
		require.NoError(t, resp.DecodeData(&page))
		require.Len(t, page.Data, 1)
		assert.Equal(t, int64(1), page.Pagination.TotalItems)
		assert.Equal(t, 1, page.Pagination.CurrentPage)

		resp, err = asBob.GET(projectPath+"/issues", map[string]string{"page": "0"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, err = asBob.GET(projectPath+"/issues", map[string]string{"populate": "nonsense"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	resp, err = asBob.GET(issuePath, map[string]string{"populate": "project:name|key"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched issue.Issue
	require.NoError(t, resp.DecodeData(&fetched))
	require.NotNil(t, fetched.Project)
	assert.Equal(t, "CUPO", fetched.Project.Key)
	assert.Nil(t, fetched.Reporter)

	resp, err = asBob.PUT(issuePath, map[string]any{"status": "in-progress", "assignee": mallory.UID})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	var updated issue.Issue
	require.NoError(t, resp.DecodeData(&updated))
	assert.Equal(t, "in-progress", updated.Status)
	assert.Equal(t, 1, updated.Version)
	assert.Nil(t, updated.AssigneeID, "assignee is not updatable through PUT")

	resp, err = asBob.PUT(issuePath, map[string]any{"status": "in-progress"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no valid changes detected", resp.GetErrorMessage())

	resp, err = asBob.PUT(issuePath+"/assign", map[string]any{"assigneeId": bob.UID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = asAlice.PUT(issuePath+"/assign", map[string]any{"assigneeId": mallory.UID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "assignee must be a member")

	resp, err = asAlice.PUT(issuePath+"/assign", map[string]any{"assigneeId": bob.UID})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	var assigned issue.Issue
	require.NoError(t, resp.DecodeData(&assigned))
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, bob.UID, *assigned.AssigneeID)

	resp, err = asBob.POST(issuePath+"/comments", map[string]string{"body": "  on it "})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var comment issue.Comment
	require.NoError(t, resp.DecodeData(&comment))
	assert.Equal(t, "on it", comment.Body)

	resp, err = asBob.GET(issuePath + "/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []issue.History
	require.NoError(t, resp.DecodeData(&history))
	require.Len(t, history, 3)
	assert.Equal(t, issue.ActionUpdate, history[0].Action)
	assert.Equal(t, issue.ActionStatusChange, history[1].Action)
	assert.Equal(t, issue.ActionCreate, history[2].Action)
	require.NotNil(t, history[0].Actor)
	assert.Equal(t, "alice", history[0].Actor.Name)

	resp, err = asBob.DELETE(issuePath)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = asAlice.DELETE(issuePath)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = asBob.GET(issuePath)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = asAlice.DELETE(issuePath)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateIssue_Multipart(t *testing.T) {
	f := newAPI(t, 100)
	alice := testutils.CreateUser(t, f.gdb, "alice")
	p := testutils.CreateProject(t, f.gdb, "Mobile App", "MOBI", alice)
	asAlice := f.client(t, alice)
	path := fmt.Sprintf("/api/projects/%d/issues", p.PID)

	notes := []byte("steps to reproduce")
	resp, err := asAlice.POSTMultipart(path, map[string][]string{
		"title":       {"Crash on launch"},
		"description": {"App closes immediately"},
		"type":        {"bug"},
		"labels":      {"ios", "crash"},
	}, testutils.File{Field: "attachments", Name: "notes.txt", ContentType: "text/plain", Content: notes})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(resp.Body))

	var created issue.Issue
	require.NoError(t, resp.DecodeData(&created))
	assert.Equal(t, "MOBI-1", created.Key)
	assert.Equal(t, "bug", created.Type)
	assert.ElementsMatch(t, []string{"ios", "crash"}, created.Labels)
	require.Len(t, created.Attachments, 1)
	assert.Equal(t, "notes.txt", created.Attachments[0].OriginalName)
	assert.Equal(t, "text/plain", created.Attachments[0].MimeType)
	assert.Equal(t, int64(len(notes)), created.Attachments[0].Size)

	resp, err = asAlice.POSTMultipart(path, map[string][]string{
		"title":       {"Bad upload"},
		"description": {"executable"},
	}, testutils.File{Field: "attachments", Name: "tool.exe", ContentType: "application/x-msdownload", Content: []byte("MZ")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	require.NoError(t, f.gdb.Model(&issue.Issue{}).Where("project_id = ?", p.PID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestActivityFeed(t *testing.T) {
	f := newAPI(t, 100)
	alice := testutils.CreateUser(t, f.gdb, "alice")
	mallory := testutils.CreateUser(t, f.gdb, "mallory")
	p := testutils.CreateProject(t, f.gdb, "Realtime", "REAL", alice)

	aliceToken := f.login(t, alice.Email)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/projects/%d/activity", p.PID)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + f.login(t, mallory.Email)}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + aliceToken}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Subscribers(p.PID) == 1 }, 2*time.Second, 10*time.Millisecond)

	resp2, err := testutils.NewHTTPClient(f.router, aliceToken).POST(fmt.Sprintf("/api/projects/%d/issues", p.PID), map[string]string{
		"title":       "Live",
		"description": "pushed to subscribers",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var batch []events.Event
	require.NoError(t, json.Unmarshal(msg, &batch))
	require.NotEmpty(t, batch)
	assert.Equal(t, events.IssueCreated, batch[0].Type)
	assert.Equal(t, "REAL-1", batch[0].IssueKey)
	assert.Equal(t, alice.UID, batch[0].ActorID)
}

func TestUserStatus(t *testing.T) {
	f := newAPI(t, 100)
	root := testutils.CreateUser(t, f.gdb, "root")
	require.NoError(t, f.gdb.Model(&user.User{}).Where("u_id = ?", root.UID).Update("role", user.RoleAdmin).Error)
	bob := testutils.CreateUser(t, f.gdb, "bob")

	asRoot := f.client(t, root)
	asBob := f.client(t, bob)
	status := func(id uint) string { return fmt.Sprintf("/api/users/%d/status", id) }

	resp, err := asBob.PUT(status(root.UID), map[string]bool{"isActive": false})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = asRoot.PUT(status(root.UID), map[string]bool{"isActive": false})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = asRoot.PUT(status(bob.UID), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = asRoot.PUT(status(bob.UID), map[string]bool{"isActive": false})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	var got user.User
	require.NoError(t, resp.DecodeData(&got))
	assert.False(t, got.IsActive)

	resp, err = asBob.GET("/api/auth/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "existing tokens stop working")

	resp, err = testutils.NewHTTPClient(f.router, "").POST("/api/auth/login", map[string]string{
		"email": bob.Email, "password": testutils.DefaultPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = asRoot.PUT(status(bob.UID), map[string]bool{"isActive": true})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.login(t, bob.Email)

	resp, err = asRoot.PUT(status(9999), map[string]bool{"isActive": false})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
