package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classforge/assessment-service/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
	exportService    services.ExportService
}

func NewAnalyticsHandler(
	analyticsService services.AnalyticsService,
	exportService services.ExportService,
	logger *slog.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
		exportService:    exportService,
	}
}

// GetAnalytics retrieves the analytics snapshot for an assessment
// @Summary Get assessment analytics
// @Description Returns aggregate score and question statistics, served from cache when fresh
// @Tags analytics
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.AssessmentAnalytics
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	analytics, err := h.analyticsService.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// RefreshAnalytics recomputes the analytics snapshot
// @Summary Refresh assessment analytics
// @Description Recomputes statistics from all attempts, bypassing the cache
// @Tags analytics
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.AssessmentAnalytics
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/analytics/refresh [post]
func (h *AnalyticsHandler) RefreshAnalytics(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Refreshing assessment analytics", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	analytics, err := h.analyticsService.Refresh(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ExportResults downloads assessment results as an xlsx workbook
// @Summary Export assessment results
// @Description Streams an xlsx workbook with summary, per-question and per-attempt sheets
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Assessment ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/export [get]
func (h *AnalyticsHandler) ExportResults(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting assessment results", "assessment_id", id)

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportService.ExportResults(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
