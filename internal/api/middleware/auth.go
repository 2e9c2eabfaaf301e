package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/linskybing/zeera/internal/config"
	"github.com/linskybing/zeera/internal/domain/project"
	"github.com/linskybing/zeera/internal/errs"
	"github.com/linskybing/zeera/internal/repository"
	"github.com/linskybing/zeera/pkg/response"
	"github.com/linskybing/zeera/pkg/utils"
	"gorm.io/gorm"
)

const ProjectRoleKey = "projectRole"

// Auth handles authorization middleware
type Auth struct {
	repos *repository.Repos
}

// NewAuth creates a new Auth middleware instance
func NewAuth(repos *repository.Repos) *Auth {
	return &Auth{repos: repos}
}

// --- Extractors ---

// ProjectIDExtractor resolves the project a request operates on.
type ProjectIDExtractor func(c *gin.Context, repos *repository.Repos) (uint, error)

// FromProjectParam reads the project id from a URL parameter.
func FromProjectParam(name string) ProjectIDExtractor {
	return func(c *gin.Context, repos *repository.Repos) (uint, error) {
		id, err := utils.ParseIDParam(c, name)
		if err != nil {
			return 0, errs.Validation(err.Error())
		}
		if _, err := repos.Project.GetProjectByID(c.Request.Context(), id); err != nil {
			return 0, errs.FromStore(err, errs.NotFound("project not found"))
		}
		return id, nil
	}
}

// FromIssueParam resolves the project owning the live issue named by a URL parameter.
func FromIssueParam(name string) ProjectIDExtractor {
	return func(c *gin.Context, repos *repository.Repos) (uint, error) {
		id, err := utils.ParseIDParam(c, name)
		if err != nil {
			return 0, errs.Validation(err.Error())
		}
		i, err := repos.Issue.GetIssueByID(c.Request.Context(), id, nil)
		if err != nil {
			return 0, errs.FromStore(err, errs.NotFound("issue not found"))
		}
		return i.ProjectID, nil
	}
}

func abortWithError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	c.AbortWithStatusJSON(status, response.ErrorResponse{
		StatusCode: status,
		Error:      errs.Message(err),
	})
}

// --- Middleware Methods ---

// Admin allows system admins only.
func (a *Auth) Admin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := utils.GetClaims(c)
		if err != nil {
			abortWithError(c, errs.Unauthorized("invalid token claims"))
			return
		}
		if !claims.IsAdmin {
			abortWithError(c, errs.Forbidden("admin only"))
			return
		}
		c.Next()
	}
}

// ProjectMember checks if user belongs to the resolved project.
func (a *Auth) ProjectMember(extractor ProjectIDExtractor) gin.HandlerFunc {
	return a.projectGate(extractor, false)
}

// ProjectAdmin checks if user is an admin of the resolved project.
func (a *Auth) ProjectAdmin(extractor ProjectIDExtractor) gin.HandlerFunc {
	return a.projectGate(extractor, true)
}

func (a *Auth) projectGate(extractor ProjectIDExtractor, requireAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := utils.GetClaims(c)
		if err != nil {
			abortWithError(c, errs.Unauthorized("unauthorized"))
			return
		}

		projectID, err := extractor(c, a.repos)
		if err != nil {
			abortWithError(c, err)
			return
		}

		// System admins pass every project gate.
		if claims.IsAdmin {
			c.Set(ProjectRoleKey, project.RoleAdmin)
			c.Next()
			return
		}

		m, err := a.repos.Project.GetMember(c.Request.Context(), projectID, claims.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abortWithError(c, errs.Forbidden("you are not a member of this project"))
			return
		}
		if err != nil {
			abortWithError(c, errs.Internal(err))
			return
		}
		if requireAdmin && m.Role != project.RoleAdmin {
			abortWithError(c, errs.Forbidden("project admin role required"))
			return
		}

		c.Set(ProjectRoleKey, m.Role)
		c.Next()
	}
}

// AllowedOrigin reports whether a browser origin may call the API. Without a
// configured list only local development origins are accepted.
func AllowedOrigin(origin string) bool {
	origins := config.ParseList(config.CorsOrigin)
	if len(origins) == 0 {
		return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
	}
	for _, o := range origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// CORSMiddleware allows the configured client origins with credentials.
func CORSMiddleware() gin.HandlerFunc {
	origins := config.ParseList(config.CorsOrigin)
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowOriginFunc = AllowedOrigin
	}

	corsHandler := cors.New(cfg)
	return func(c *gin.Context) {
		upgrade := c.GetHeader("Upgrade")
		if strings.EqualFold(upgrade, "websocket") {
			c.Next()
			return
		}
		corsHandler(c)
	}
}
