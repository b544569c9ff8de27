package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/monitoring"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// Handlers contains HTTP handlers for authentication operations
type Handlers struct {
	service      *Service
	logger       *logger.Logger
	metrics      *monitoring.MetricsCollector
	cookieMaxAge int
	secureCookie bool
	exposeErrors bool
}

// NewHandlers creates new auth HTTP handlers
func NewHandlers(service *Service, log *logger.Logger, metrics *monitoring.MetricsCollector, secureCookie, exposeErrors bool) *Handlers {
	return &Handlers{
		service:      service,
		logger:       log,
		metrics:      metrics,
		cookieMaxAge: int(service.tokens.TTL().Seconds()),
		secureCookie: secureCookie,
		exposeErrors: exposeErrors,
	}
}

// RegisterRoutes registers auth routes with the router group
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/google", h.GoogleLogin)
		authGroup.POST("/logout", h.Logout)

		authenticated := authGroup.Group("")
		authenticated.Use(h.Authenticate())
		{
			authenticated.GET("/profile", h.Profile)
			authenticated.GET("/verify", h.VerifySession)
			authenticated.GET("/protected", h.Protected)
		}
	}
}

type googleLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// GoogleLogin exchanges a Google ID token for a session token
func (h *Handlers) GoogleLogin(c *gin.Context) {
	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordAuthAttempt("google", "invalid_request")
		h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Google ID token is required", nil))
		return
	}

	user, token, err := h.service.LoginOrRegister(c.Request.Context(), req.Token)
	if err != nil {
		h.metrics.RecordAuthAttempt("google", "failure")
		h.handleError(c, err)
		return
	}
	h.metrics.RecordAuthAttempt("google", "success")

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Authentication successful",
		Data: gin.H{
			"user":        user.PublicProfile(),
			"accessToken": token,
		},
	})
}

// Profile returns the authenticated user's profile
func (h *Handlers) Profile(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		h.handleError(c, types.NewAuthenticationError(types.ErrCodeMissingToken, "Access token required"))
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    gin.H{"user": user.PublicProfile()},
	})
}

// VerifySession confirms the session token is still valid
func (h *Handlers) VerifySession(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		h.handleError(c, types.NewAuthenticationError(types.ErrCodeMissingToken, "Access token required"))
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Token is valid",
		Data: gin.H{
			"valid": true,
			"user":  user.PublicProfile(),
		},
	})
}

// Protected is a sample endpoint for exercising the auth middleware
func (h *Handlers) Protected(c *gin.Context) {
	user, _ := CurrentUser(c)

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Access granted to protected resource",
		Data:    gin.H{"userId": user.ID},
	})
}

// Logout clears the session cookie. Sessions are stateless, so the token
// itself stays valid until expiry; clients are expected to discard it.
func (h *Handlers) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Logged out successfully",
	})
}

func (h *Handlers) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, h.cookieMaxAge, "/", "", h.secureCookie, true)
}

func (h *Handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
}

func (h *Handlers) handleError(c *gin.Context, err error) {
	var typed *types.Error
	if errors.As(err, &typed) {
		resp := types.Response{
			Success: false,
			Message: typed.Message,
		}
		if h.exposeErrors {
			resp.Error = typed.Code
		}
		c.JSON(types.HTTPStatus(typed.Type), resp)
		return
	}

	h.logger.WithError(err).Error("Internal server error")
	resp := types.Response{
		Success: false,
		Message: "An internal error occurred",
	}
	if h.exposeErrors {
		resp.Error = types.ErrCodeInternalError
	}
	c.JSON(http.StatusInternalServerError, resp)
}
