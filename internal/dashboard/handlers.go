// Package dashboard aggregates a user's health data into overview, analytics,
// trend, reminder and export endpoints.
package dashboard

import (
	"encoding/csv"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

const exportRecordLimit = 1000

// Handlers contains HTTP handlers for dashboard operations
type Handlers struct {
	store        *store.Store
	rbac         *rbac.Middleware
	audit        *rbac.AuditLogger
	authmw       *auth.Handlers
	logger       *logger.Logger
	exposeErrors bool
}

// NewHandlers creates new dashboard HTTP handlers
func NewHandlers(st *store.Store, rbacMW *rbac.Middleware, audit *rbac.AuditLogger, authMW *auth.Handlers, log *logger.Logger, exposeErrors bool) *Handlers {
	return &Handlers{
		store:        st,
		rbac:         rbacMW,
		audit:        audit,
		authmw:       authMW,
		logger:       log,
		exposeErrors: exposeErrors,
	}
}

// RegisterRoutes registers dashboard routes with the router group
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/dashboard")
	group.Use(h.authmw.Authenticate())
	{
		group.GET("/overview", h.rbac.RequirePermission(types.PermReadOwnRecords), h.Overview)
		group.GET("/analytics", h.rbac.RequirePermission(types.PermReadOwnRecords), h.Analytics)
		group.GET("/trends", h.rbac.RequirePermission(types.PermReadOwnRecords), h.Trends)
		group.GET("/reminders", h.rbac.RequirePermission(types.PermReadOwnRecords), h.Reminders)
		group.GET("/export", h.rbac.RequirePermission(types.PermExportData), h.Export)
	}
}

// Overview returns headline stats, recent data and chart aggregates
func (h *Handlers) Overview(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	stats, err := h.store.DashboardStats(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	recentRecords, err := h.store.HealthRecordsByUser(ctx, user.ID, 5, 0)
	if err != nil {
		h.handleError(c, err)
		return
	}

	history, err := h.store.MedicalHistoryByUser(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if len(history) > 5 {
		history = history[:5]
	}

	activeMedications, err := h.store.ActiveMedications(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if len(activeMedications) > 5 {
		activeMedications = activeMedications[:5]
	}

	monthly, err := h.store.MonthlyRecordCounts(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	verificationCounts, err := h.store.VerificationCounts(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	severity, err := h.store.SeverityDistribution(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"overview":          stats,
			"recentRecords":     recentRecords,
			"medicalHistory":    history,
			"activeMedications": activeMedications,
			"charts": gin.H{
				"monthlyRecords":       monthly,
				"verificationStatus":   verificationCounts,
				"severityDistribution": severity,
			},
			"lastUpdated": time.Now().UTC(),
		},
	})
}

// Analytics returns period-scoped aggregates: daily time series, top coded
// conditions and most visited providers. Unknown periods fall back to 30d.
func (h *Handlers) Analytics(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	period := c.DefaultQuery("period", "30d")
	if !store.ValidPeriod(period) {
		period = "30d"
	}

	timeSeries, err := h.store.RecordTimeSeries(ctx, user.ID, period)
	if err != nil {
		h.handleError(c, err)
		return
	}

	topConditions, err := h.store.TopConditions(ctx, user.ID, period)
	if err != nil {
		h.handleError(c, err)
		return
	}

	providerStats, err := h.store.ProviderStats(ctx, user.ID, period)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"period":        period,
			"timeSeries":    timeSeries,
			"topConditions": topConditions,
			"providerStats": providerStats,
			"generatedAt":   time.Now().UTC(),
		},
	})
}

// Trends returns the derived weekly health score and monthly medication volume
func (h *Handlers) Trends(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	healthTrend, err := h.store.HealthScoreTrend(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	medicationTrend, err := h.store.MedicationTrend(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"healthTrend":     healthTrend,
			"medicationTrend": medicationTrend,
			"lastCalculated":  time.Now().UTC(),
		},
	})
}

// Reminders returns prescriptions ending soon and records awaiting follow-up
func (h *Handlers) Reminders(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	medicationReminders, err := h.store.MedicationReminders(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	followUps, err := h.store.FollowUpReminders(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"medicationReminders": medicationReminders,
			"followUpReminders":   followUps,
			"generatedAt":         time.Now().UTC(),
		},
	})
}

// Export streams the user's full health data as JSON or CSV. Attachments are
// stripped unless explicitly requested.
func (h *Handlers) Export(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	format := c.DefaultQuery("format", "json")
	includeAttachments := c.Query("includeAttachments") == "true"

	records, err := h.store.HealthRecordsByUser(ctx, user.ID, exportRecordLimit, 0)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit.Record("data_exported", user.ID, "health_record", "", map[string]interface{}{
		"format":       format,
		"recordCount":  len(records),
		"attachments":  includeAttachments,
	})

	if format == "csv" {
		h.exportCSV(c, records)
		return
	}

	history, err := h.store.MedicalHistoryByUser(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	medications, err := h.store.MedicationsByUser(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if !includeAttachments {
		for i := range records {
			records[i].Attachments = nil
		}
	}

	c.Header("Content-Disposition", "attachment; filename=health_data.json")
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
		},
		"exportDate":     time.Now().UTC(),
		"healthRecords":  records,
		"medicalHistory": history,
		"medications":    medications,
		"totalRecords":   len(records),
	})
}

func (h *Handlers) exportCSV(c *gin.Context, records []types.HealthRecord) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=health_records.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Title", "Type", "Date", "Status"})
	for _, rec := range records {
		_ = w.Write([]string{
			rec.Title,
			rec.RecordType,
			rec.CreatedAt.Format(time.RFC3339),
			rec.Status,
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		h.logger.WithError(err).Error("CSV export write failed")
	}
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
