package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/pkg/types"
)

const (
	// SessionCookie is the cookie carrying the session token
	SessionCookie = "accessToken"

	contextUserKey = "user"
)

// Authenticate validates the session token from the Authorization header or
// the session cookie and attaches the current user to the request context.
func (h *Handlers) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			h.handleError(c, types.NewAuthenticationError(types.ErrCodeMissingToken, "Access token required"))
			c.Abort()
			return
		}

		user, err := h.service.UserFromToken(c.Request.Context(), token)
		if err != nil {
			h.handleError(c, err)
			c.Abort()
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user attached by Authenticate
func CurrentUser(c *gin.Context) (*types.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*types.User)
	return user, ok
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie
}
