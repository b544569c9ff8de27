package verification

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// Handlers contains HTTP handlers for verification operations
type Handlers struct {
	service      *Service
	rbac         *rbac.Middleware
	authmw       *auth.Handlers
	logger       *logger.Logger
	exposeErrors bool
}

// NewHandlers creates new verification HTTP handlers
func NewHandlers(service *Service, rbacMW *rbac.Middleware, authMW *auth.Handlers, log *logger.Logger, exposeErrors bool) *Handlers {
	return &Handlers{
		service:      service,
		rbac:         rbacMW,
		authmw:       authMW,
		logger:       log,
		exposeErrors: exposeErrors,
	}
}

// RegisterRoutes registers verification routes with the router group
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	// Routes are authentication-only: the service resolves records through
	// the caller's ownership or verify permission, so verifiers and admins
	// reach any record while everyone else stays scoped to their own.
	group := api.Group("/verification")
	group.Use(h.authmw.Authenticate())
	{
		group.POST("/verify/:recordId", h.Verify)
		group.POST("/verify-batch", h.VerifyBatch)
		group.GET("/history/:recordId", h.History)
		group.GET("/stats", h.Stats)
	}
}

type verifyRequest struct {
	VerificationType string `json:"verificationType"`
}

// Verify runs one verification attempt against a record
func (h *Handlers) Verify(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req verifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
			return
		}
	}

	result, err := h.service.VerifyRecord(c.Request.Context(), user, c.Param("recordId"), req.VerificationType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	message := "Verification failed"
	if result.Outcome.Verified {
		message = "Verification successful"
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: message,
		Data: gin.H{
			"recordId":           result.RecordID,
			"verificationStatus": result.VerificationStatus,
			"verificationResult": result.Outcome,
			"timestamp":          time.Now().UTC(),
		},
	})
}

type verifyBatchRequest struct {
	RecordIDs        []string `json:"recordIds"`
	VerificationType string   `json:"verificationType"`
}

// VerifyBatch verifies up to ten records in one request
func (h *Handlers) VerifyBatch(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req verifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Record IDs array is required", nil))
		return
	}

	results, summary, err := h.service.VerifyBatch(c.Request.Context(), user, req.RecordIDs, req.VerificationType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: fmt.Sprintf("Batch verification completed. %d/%d records verified successfully.",
			summary.Successful, summary.Total),
		Data: gin.H{
			"results": results,
			"summary": summary,
		},
	})
}

// History returns a record's verification attempts
func (h *Handlers) History(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	record, logs, err := h.service.History(c.Request.Context(), user, c.Param("recordId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"recordId":            record.ID,
			"recordTitle":         record.Title,
			"currentStatus":       record.VerificationStatus,
			"verificationHistory": logs,
		},
	})
}

// Stats returns verification aggregates for the user's records
func (h *Handlers) Stats(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	stats, err := h.service.VerificationStats(c.Request.Context(), user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    stats,
	})
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
