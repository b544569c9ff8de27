// Package records implements the ownership-scoped CRUD surface for health
// records.
package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imspidey6989/MediBridge/internal/auth"
	"github.com/imspidey6989/MediBridge/internal/rbac"
	"github.com/imspidey6989/MediBridge/internal/store"
	"github.com/imspidey6989/MediBridge/pkg/logger"
	"github.com/imspidey6989/MediBridge/pkg/types"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Handlers contains HTTP handlers for health record operations
type Handlers struct {
	store        *store.Store
	rbac         *rbac.Middleware
	audit        *rbac.AuditLogger
	authmw       *auth.Handlers
	logger       *logger.Logger
	exposeErrors bool
}

// NewHandlers creates new health record HTTP handlers
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

// RegisterRoutes registers health record routes with the router group
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	recordsGroup := api.Group("/health-records")
	recordsGroup.Use(h.authmw.Authenticate())
	{
		recordsGroup.GET("", h.rbac.RequirePermission(types.PermReadOwnRecords), h.List)
		recordsGroup.GET("/stats/overview", h.rbac.RequirePermission(types.PermReadOwnRecords), h.StatsOverview)
		recordsGroup.POST("", h.rbac.RequirePermission(types.PermWriteOwnRecords), h.Create)

		recordsGroup.GET("/:id",
			h.rbac.RequirePermission(types.PermReadOwnRecords),
			h.rbac.RequireResourceAccess(h.recordOwner), h.Get)
		recordsGroup.PUT("/:id",
			h.rbac.RequirePermission(types.PermWriteOwnRecords),
			h.rbac.RequireResourceAccess(h.recordOwner), h.Update)
		recordsGroup.DELETE("/:id",
			h.rbac.RequirePermission(types.PermWriteOwnRecords),
			h.rbac.RequireResourceAccess(h.recordOwner), h.Delete)
	}
}

func (h *Handlers) recordOwner(c *gin.Context) (string, error) {
	return h.store.RecordOwnerID(c.Request.Context(), c.Param("id"))
}

// List returns the user's records with optional type/status filters,
// paginated newest-first.
func (h *Handlers) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	recordType := c.Query("type")
	status := c.Query("status")
	offset := (page - 1) * limit

	records, err := h.store.HealthRecordsFiltered(c.Request.Context(), user.ID, recordType, status, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	total, err := h.store.CountHealthRecords(c.Request.Context(), user.ID, recordType, status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	filtered := rbac.FilterRecordsByRole(records, user.Role, user.ID)
	pagination := types.NewPagination(page, limit, total)
	c.JSON(http.StatusOK, types.Response{
		Success:    true,
		Data:       filtered,
		Pagination: &pagination,
	})
}

type createRecordRequest struct {
	RecordType   string          `json:"recordType"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ICD11Code    string          `json:"icd11Code"`
	ICD11Title   string          `json:"icd11Title"`
	Diagnosis    string          `json:"diagnosis"`
	Symptoms     []string        `json:"symptoms"`
	Medications  json.RawMessage `json:"medications"`
	TestResults  json.RawMessage `json:"testResults"`
	Attachments  json.RawMessage `json:"attachments"`
	DoctorName   string          `json:"doctorName"`
	HospitalName string          `json:"hospitalName"`
	VisitDate    *time.Time      `json:"visitDate"`
	Severity     string          `json:"severity"`
}

// Create adds a new health record owned by the authenticated user
func (h *Handlers) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}
	if req.RecordType == "" || req.Title == "" {
		h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Record type and title are required", nil))
		return
	}

	record, err := h.store.CreateHealthRecord(c.Request.Context(), &store.NewHealthRecord{
		UserID:       user.ID,
		RecordType:   req.RecordType,
		Title:        req.Title,
		Description:  req.Description,
		ICD11Code:    req.ICD11Code,
		ICD11Title:   req.ICD11Title,
		Diagnosis:    req.Diagnosis,
		Symptoms:     req.Symptoms,
		Medications:  req.Medications,
		TestResults:  req.TestResults,
		Attachments:  req.Attachments,
		DoctorName:   req.DoctorName,
		HospitalName: req.HospitalName,
		VisitDate:    req.VisitDate,
		Severity:     types.Severity(req.Severity),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	// Analytics feed the dashboard; a failure there never fails the create
	metricValue, _ := json.Marshal(map[string]interface{}{
		"recordType": record.RecordType,
		"severity":   record.Severity,
	})
	if err := h.store.InsertAnalyticsEntry(c.Request.Context(), user.ID, "record_created", metricValue); err != nil {
		h.logger.WithError(err).Warn("Analytics entry insert failed")
	}

	h.audit.Record("record_created", user.ID, "health_record", record.ID, map[string]interface{}{
		"recordType": record.RecordType,
		"title":      record.Title,
		"severity":   record.Severity,
	})

	c.JSON(http.StatusCreated, types.Response{
		Success: true,
		Message: "Health record created successfully",
		Data:    record,
	})
}

// Get returns one record, scoped to its owner
func (h *Handlers) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	record, err := h.store.HealthRecordByID(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    record,
	})
}

// updatableFields maps request body keys to their database columns. Anything
// not listed here, including verification state and ownership, is discarded.
var updatableFields = map[string]string{
	"recordType":   "record_type",
	"title":        "title",
	"description":  "description",
	"icd11Code":    "icd11_code",
	"icd11Title":   "icd11_title",
	"diagnosis":    "diagnosis",
	"symptoms":     "symptoms",
	"medications":  "medications",
	"testResults":  "test_results",
	"attachments":  "attachments",
	"doctorName":   "doctor_name",
	"hospitalName": "hospital_name",
	"visitDate":    "visit_date",
	"severity":     "severity",
	"status":       "status",
}

// Update applies the allowlisted fields from the request body to a record
func (h *Handlers) Update(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid request body", nil))
		return
	}

	fields, err := buildUpdateFields(body)
	if err != nil {
		h.handleError(c, err)
		return
	}

	record, err := h.store.UpdateHealthRecord(c.Request.Context(), c.Param("id"), user.ID, fields)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit.Record("record_updated", user.ID, "health_record", record.ID, map[string]interface{}{
		"fields": fieldNames(fields),
	})

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Health record updated successfully",
		Data:    record,
	})
}

// Delete removes a record, scoped to its owner
func (h *Handlers) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	record, err := h.store.DeleteHealthRecord(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit.Record("record_deleted", user.ID, "health_record", record.ID, map[string]interface{}{
		"recordType": record.RecordType,
		"title":      record.Title,
	})

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Message: "Health record deleted successfully",
		Data:    record,
	})
}

// StatsOverview returns the user's headline counts, recent records and
// records-by-type breakdown.
func (h *Handlers) StatsOverview(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	ctx := c.Request.Context()

	stats, err := h.store.DashboardStats(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	recent, err := h.store.HealthRecordsByUser(ctx, user.ID, 5, 0)
	if err != nil {
		h.handleError(c, err)
		return
	}

	byType, err := h.store.RecordCountsByType(ctx, user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: gin.H{
			"overview":      stats,
			"recentRecords": recent,
			"recordsByType": byType,
			"lastUpdated":   time.Now().UTC(),
		},
	})
}

func buildUpdateFields(body map[string]interface{}) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	for key, value := range body {
		column, ok := updatableFields[key]
		if !ok {
			continue
		}

		converted, err := convertFieldValue(key, value)
		if err != nil {
			return nil, err
		}
		fields[column] = converted
	}
	if len(fields) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updatable fields supplied", nil)
	}
	return fields, nil
}

func convertFieldValue(key string, value interface{}) (interface{}, error) {
	switch key {
	case "symptoms":
		items, ok := value.([]interface{})
		if !ok {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Symptoms must be a list of strings", nil)
		}
		symptoms := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Symptoms must be a list of strings", nil)
			}
			symptoms = append(symptoms, s)
		}
		return symptoms, nil

	case "medications", "testResults", "attachments":
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid JSON field value", nil)
		}
		return encoded, nil

	case "visitDate":
		s, ok := value.(string)
		if !ok {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Visit date must be a date string", nil)
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Visit date must be a date string", nil)

	default:
		s, ok := value.(string)
		if !ok {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Field must be a string", map[string]interface{}{
				"field": key,
			})
		}
		return s, nil
	}
}

func fieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	return names
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
