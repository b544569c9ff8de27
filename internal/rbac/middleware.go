package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// OwnerResolver resolves the owning user id of the resource a request
// targets. A missing resource must come back as a typed not-found error so
// the middleware can answer 404 instead of 500.
type OwnerResolver func(c *gin.Context) (string, error)

// Middleware provides gin middlewares enforcing the permission table
type Middleware struct {
	logger *logger.Logger
}

// NewMiddleware creates RBAC middleware
func NewMiddleware(log *logger.Logger) *Middleware {
	return &Middleware{logger: log}
}

// RequirePermission rejects requests whose user role lacks the permission.
// Requests without a role fall back to patient, the least privileged role.
func (m *Middleware) RequirePermission(permission types.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := requestRole(c)

		if !HasPermission(role, permission) {
			userID := requestUserID(c)
			m.logger.Security("permission_denied", userID, map[string]interface{}{
				"required": string(permission),
				"role":     string(role),
				"path":     c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success":  false,
				"message":  "Insufficient permissions",
				"required": string(permission),
				"userRole": string(role),
			})
			return
		}

		c.Next()
	}
}

// RequireResourceAccess resolves the target resource's owner and rejects
// requests the role/ownership rules deny. Resolver not-found errors surface
// as 404, resolver failures as 500, denials as 403.
func (m *Middleware) RequireResourceAccess(resolve OwnerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := requestRole(c)
		userID := requestUserID(c)

		ownerID, err := resolve(c)
		if err != nil {
			if types.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, types.Response{
					Success: false,
					Message: "Resource not found",
				})
				return
			}
			m.logger.WithError(err).Error("Resource owner resolution failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, types.Response{
				Success: false,
				Message: "Resource access validation failed",
			})
			return
		}

		if !CanAccessResource(role, ownerID, userID) {
			m.logger.Security("resource_access_denied", userID, map[string]interface{}{
				"role":     string(role),
				"owner_id": ownerID,
				"path":     c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(http.StatusForbidden, types.Response{
				Success: false,
				Message: "Access denied to this resource",
			})
			return
		}

		c.Next()
	}
}

// RequireRole rejects requests whose user role is not in the allowed set
func (m *Middleware) RequireRole(allowed ...types.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := requestRole(c)

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		m.logger.Security("role_denied", requestUserID(c), map[string]interface{}{
			"role": string(role),
			"path": c.Request.URL.Path,
		})
		c.AbortWithStatusJSON(http.StatusForbidden, types.Response{
			Success: false,
			Message: "Insufficient role privileges",
		})
	}
}

func requestRole(c *gin.Context) types.UserRole {
	if user, ok := auth.CurrentUser(c); ok && user.Role != "" {
		return user.Role
	}
	return types.RolePatient
}

func requestUserID(c *gin.Context) string {
	if user, ok := auth.CurrentUser(c); ok {
		return user.ID
	}
	return ""
}
