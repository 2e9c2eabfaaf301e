package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/api/handlers"
	"github.com/linskybing/zeera/internal/api/middleware"
	"github.com/linskybing/zeera/internal/application"
	"github.com/linskybing/zeera/internal/events"
	"github.com/linskybing/zeera/internal/ratelimit"
	"github.com/linskybing/zeera/internal/repository"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/linskybing/zeera/docs"
)

// Deps is everything the router needs. The limiter stores are owned by the
// caller so their janitors can follow the server's lifetime.
type Deps struct {
	Services       *application.Services
	Repos          *repository.Repos
	Hub            *events.Hub
	GeneralLimiter *ratelimit.Store
	AuthLimiter    *ratelimit.Store
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	if d.GeneralLimiter != nil {
		r.Use(middleware.RateLimit(d.GeneralLimiter, "general", "too many requests, please try again later"))
	}
	RegisterRoutes(r, d)
	r.NoRoute(handlers.NotFound)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.New(d.Services, d.Hub)
	authMiddleware := middleware.NewAuth(d.Repos)
	jwt := middleware.JWTAuthMiddleware(d.Repos.User)

	projectMember := authMiddleware.ProjectMember(middleware.FromProjectParam("id"))
	projectAdmin := authMiddleware.ProjectAdmin(middleware.FromProjectParam("id"))
	issueMember := authMiddleware.ProjectMember(middleware.FromIssueParam("issueId"))
	issueAdmin := authMiddleware.ProjectAdmin(middleware.FromIssueParam("issueId"))

	r.GET("/health", handlers.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var authLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.AuthLimiter != nil {
		authLimit = middleware.RateLimit(d.AuthLimiter, "auth", "too many authentication attempts, please try again later")
	}

	api := r.Group("/api")
	auth := api.Group("/auth")
	{
		auth.POST("/register", authLimit, h.User.Register)
		auth.POST("/login", authLimit, h.User.Login)
		auth.POST("/refresh", authLimit, h.User.Refresh)
		auth.POST("/logout", jwt, h.User.Logout)
		auth.GET("/me", jwt, h.User.Me)
		auth.PUT("/password", jwt, h.User.ChangePassword)
	}

	protected := api.Group("")
	protected.Use(jwt)
	{
		protected.GET("/users", h.User.ListUsers)
		protected.PUT("/users/:id/status", authMiddleware.Admin(), h.User.SetUserStatus)

		projects := protected.Group("/projects")
		{
			projects.POST("", h.Project.CreateProject)
			projects.GET("", h.Project.ListProjects)
			projects.GET("/:id", projectMember, h.Project.GetProject)

			projects.GET("/:id/members", projectMember, h.Project.ListMembers)
			projects.POST("/:id/members", projectAdmin, h.Project.AddMember)
			projects.PUT("/:id/members/:userId", projectAdmin, h.Project.ChangeMemberRole)
			projects.DELETE("/:id/members/:userId", projectAdmin, h.Project.RemoveMember)

			projects.POST("/:id/issues", projectMember, h.Issue.CreateIssue)
			projects.GET("/:id/issues", projectMember, h.Issue.ListIssues)
		}

		issues := protected.Group("/issues")
		{
			issues.GET("/:issueId", issueMember, h.Issue.GetIssue)
			issues.PUT("/:issueId", issueMember, h.Issue.UpdateIssue)
			issues.DELETE("/:issueId", issueAdmin, h.Issue.DeleteIssue)

			issues.PUT("/:issueId/assign", issueAdmin, h.Issue.AssignIssue)
			issues.PUT("/:issueId/reassign", issueAdmin, h.Issue.ReassignIssue)
			issues.PUT("/:issueId/unassign", issueAdmin, h.Issue.UnassignIssue)

			issues.GET("/:issueId/history", issueMember, h.Issue.ListHistory)
			issues.GET("/:issueId/comments", issueMember, h.Comment.ListComments)
			issues.POST("/:issueId/comments", issueMember, h.Comment.AddComment)
		}
	}

	ws := r.Group("/ws")
	ws.Use(jwt)
	{
		ws.GET("/projects/:id/activity", projectMember, h.Activity.Stream)
	}
}
