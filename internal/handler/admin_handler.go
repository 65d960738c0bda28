package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/service"
	"github.com/noah-isme/secure-print-api/pkg/response"
)

// AdminHandler serves the audit trail and file inventory for administrators.
type AdminHandler struct {
	logs    *service.PrintLogService
	files   *service.FileService
	metrics *service.MetricsService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(logs *service.PrintLogService, files *service.FileService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{logs: logs, files: files, metrics: metrics}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// ListPrintLogs godoc
// @Summary List print logs
// @Description Paginated audit trail, newest first
// @Tags Admin
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.Envelope
// @Router /admin/print-logs [get]
func (h *AdminHandler) ListPrintLogs(c *gin.Context) {
	page, limit := pageParams(c)

	entries, total, err := h.logs.List(c.Request.Context(), models.PrintLogFilter{Page: page, PageSize: limit})
	if err != nil {
		response.Error(c, err)
		return
	}

	pages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    entries,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": pages,
		},
	})
}

// ListPrintLogsByFile godoc
// @Summary List print logs for one file
// @Tags Admin
// @Produce json
// @Param fileId path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.Envelope
// @Router /admin/print-logs/file/{fileId} [get]
func (h *AdminHandler) ListPrintLogsByFile(c *gin.Context) {
	entries, total, err := h.logs.ListByFile(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": total, "logs": entries})
}

// ListFiles godoc
// @Summary List stored files
// @Tags Admin
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param search query string false "Filename search"
// @Success 200 {object} response.Envelope
// @Router /admin/files [get]
func (h *AdminHandler) ListFiles(c *gin.Context) {
	page, limit := pageParams(c)
	filter := models.FileFilter{
		Search:   c.Query("search"),
		OwnerID:  c.Query("owner_id"),
		Page:     page,
		PageSize: limit,
	}

	files, total, err := h.files.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, files, &models.Pagination{Page: page, PageSize: limit, TotalCount: total})
}

// SystemMetrics godoc
// @Summary Aggregated runtime metrics
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/metrics [get]
func (h *AdminHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
